package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/upload/biz"
	"gorm.io/gorm"
)

// UploadPO 上传记录数据库模型
type UploadPO struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	Filename    string    `gorm:"type:varchar(255);not null"`
	ObjectKey   string    `gorm:"type:varchar(512);uniqueIndex;not null"`
	ContentType string    `gorm:"type:varchar(128)"`
	Size        int64     `gorm:"not null"`
	UploadedBy  string    `gorm:"type:varchar(64);index"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (UploadPO) TableName() string {
	return "uploads"
}

func (po *UploadPO) toDomain() *biz.Upload {
	return &biz.Upload{
		ID:          po.ID,
		Filename:    po.Filename,
		ObjectKey:   po.ObjectKey,
		ContentType: po.ContentType,
		Size:        po.Size,
		UploadedBy:  po.UploadedBy,
		CreatedAt:   po.CreatedAt,
	}
}

// UploadRepo 上传记录存储实现
type UploadRepo struct {
	db *gorm.DB
}

func NewUploadRepo(db *gorm.DB) *UploadRepo {
	return &UploadRepo{db: db}
}

func (r *UploadRepo) Create(ctx context.Context, upload *biz.Upload) error {
	po := &UploadPO{
		ID:          upload.ID,
		Filename:    upload.Filename,
		ObjectKey:   upload.ObjectKey,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		UploadedBy:  upload.UploadedBy,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("create upload record: %w", err)
	}

	upload.CreatedAt = po.CreatedAt
	return nil
}

func (r *UploadRepo) GetByID(ctx context.Context, id string) (*biz.Upload, error) {
	var po UploadPO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrUploadNotFound, id)
		}
		return nil, fmt.Errorf("get upload record: %w", err)
	}
	return po.toDomain(), nil
}

func (r *UploadRepo) List(ctx context.Context) ([]*biz.Upload, error) {
	var pos []UploadPO
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("list upload records: %w", err)
	}

	uploads := make([]*biz.Upload, 0, len(pos))
	for i := range pos {
		uploads = append(uploads, pos[i].toDomain())
	}
	return uploads, nil
}

func (r *UploadRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UploadPO{})
	if result.Error != nil {
		return fmt.Errorf("delete upload record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrUploadNotFound, id)
	}
	return nil
}
