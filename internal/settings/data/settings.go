package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/settings/biz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingPO 站点配置数据库模型
type SettingPO struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:jsonb;not null;default:'null'"`
	UpdatedBy string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SettingPO) TableName() string {
	return "site_settings"
}

func (po *SettingPO) toDomain() *biz.Setting {
	return &biz.Setting{
		Key:       po.Key,
		Value:     json.RawMessage(po.Value),
		UpdatedBy: po.UpdatedBy,
		UpdatedAt: po.UpdatedAt,
	}
}

// SettingRepo 配置存储实现
type SettingRepo struct {
	db *gorm.DB
}

func NewSettingRepo(db *gorm.DB) *SettingRepo {
	return &SettingRepo{db: db}
}

func (r *SettingRepo) Get(ctx context.Context, key string) (*biz.Setting, error) {
	var po SettingPO
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSettingNotFound, key)
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return po.toDomain(), nil
}

func (r *SettingRepo) List(ctx context.Context) ([]*biz.Setting, error) {
	var pos []SettingPO
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	settings := make([]*biz.Setting, 0, len(pos))
	for i := range pos {
		settings = append(settings, pos[i].toDomain())
	}
	return settings, nil
}

func (r *SettingRepo) Upsert(ctx context.Context, setting *biz.Setting) error {
	po := &SettingPO{
		Key:       setting.Key,
		Value:     string(setting.Value),
		UpdatedBy: setting.UpdatedBy,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(po).Error
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}

	setting.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *SettingRepo) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("key = ?", key).Delete(&SettingPO{})
	if result.Error != nil {
		return fmt.Errorf("delete setting: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSettingNotFound, key)
	}
	return nil
}
