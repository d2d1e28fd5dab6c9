package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/stage-portal-backend/internal/auditlog/biz"
	"gorm.io/gorm"
)

// EntryPO 操作日志数据库模型
type EntryPO struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	ActorID   string    `gorm:"type:uuid;index"`
	Actor     string    `gorm:"type:varchar(64);index"`
	Action    string    `gorm:"type:varchar(64);index;not null"`
	Target    string    `gorm:"type:varchar(255)"`
	Detail    string    `gorm:"type:text"`
	IP        string    `gorm:"type:varchar(45)"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (EntryPO) TableName() string {
	return "audit_logs"
}

func (po *EntryPO) toDomain() *biz.Entry {
	return &biz.Entry{
		ID:        po.ID,
		ActorID:   po.ActorID,
		Actor:     po.Actor,
		Action:    po.Action,
		Target:    po.Target,
		Detail:    po.Detail,
		IP:        po.IP,
		CreatedAt: po.CreatedAt,
	}
}

// EntryRepo 日志存储实现
type EntryRepo struct {
	db *gorm.DB
}

func NewEntryRepo(db *gorm.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

func (r *EntryRepo) Create(ctx context.Context, entry *biz.Entry) error {
	po := &EntryPO{
		ID:      uuid.New().String(),
		ActorID: entry.ActorID,
		Actor:   entry.Actor,
		Action:  entry.Action,
		Target:  entry.Target,
		Detail:  entry.Detail,
		IP:      entry.IP,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}

	entry.ID = po.ID
	entry.CreatedAt = po.CreatedAt
	return nil
}

func (r *EntryRepo) List(ctx context.Context, query biz.ListQuery) ([]*biz.Entry, int64, error) {
	db := r.db.WithContext(ctx).Model(&EntryPO{})
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.Actor != "" {
		db = db.Where("actor = ?", query.Actor)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	var pos []EntryPO
	offset := (query.Page - 1) * query.PageSize
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.PageSize).Find(&pos).Error; err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]*biz.Entry, 0, len(pos))
	for i := range pos {
		entries = append(entries, pos[i].toDomain())
	}
	return entries, total, nil
}
