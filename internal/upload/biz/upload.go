package biz

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"go.uber.org/zap"
)

// MaxFileSize 单文件大小上限
const MaxFileSize = 20 << 20 // 20 MiB

// 允许上传的扩展名
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".zip":  "application/zip",
}

// Upload 上传文件记录
type Upload struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadRepo 上传记录存储接口
type UploadRepo interface {
	Create(ctx context.Context, upload *Upload) error
	GetByID(ctx context.Context, id string) (*Upload, error)
	List(ctx context.Context) ([]*Upload, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStore 对象存储接口
type ObjectStore interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignedGetObject(ctx context.Context, key string, expiry time.Duration) (string, error)
	RemoveObject(ctx context.Context, key string) error
}

// UploadUseCase 文件上传业务逻辑
type UploadUseCase struct {
	repo  UploadRepo
	store ObjectStore
	log   *zap.Logger
}

func NewUploadUseCase(repo UploadRepo, store ObjectStore, log *zap.Logger) *UploadUseCase {
	return &UploadUseCase{repo: repo, store: store, log: log}
}

// Upload 校验并上传文件，元数据落库
func (uc *UploadUseCase) Upload(ctx context.Context, filename string, size int64, reader io.Reader, uploadedBy string) (*Upload, error) {
	if size <= 0 || size > MaxFileSize {
		return nil, apperrors.New(apperrors.ErrUploadTooLarge, fmt.Sprintf("size %d exceeds limit", size))
	}

	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUploadBadType, ext)
	}

	id := uuid.New().String()
	key := fmt.Sprintf("uploads/%s/%s%s", time.Now().Format("2006/01"), id, ext)

	if err := uc.store.PutObject(ctx, key, reader, size, contentType); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUploadStorage, "")
	}

	upload := &Upload{
		ID:          id,
		Filename:    filename,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  uploadedBy,
	}
	if err := uc.repo.Create(ctx, upload); err != nil {
		// 元数据写失败时回收已上传的对象
		if rmErr := uc.store.RemoveObject(ctx, key); rmErr != nil {
			uc.log.Warn("orphan object cleanup failed", zap.Error(rmErr), zap.String("key", key))
		}
		return nil, err
	}

	uc.log.Info("file uploaded",
		zap.String("upload_id", id),
		zap.String("filename", filename),
		zap.Int64("size", size))
	return upload, nil
}

// DownloadURL 生成临时下载链接
func (uc *UploadUseCase) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	upload, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := uc.store.PresignedGetObject(ctx, upload.ObjectKey, expiry)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrUploadStorage, "")
	}
	return url, nil
}

// List 上传记录列表
func (uc *UploadUseCase) List(ctx context.Context) ([]*Upload, error) {
	return uc.repo.List(ctx)
}

// Delete 删除文件及其元数据
func (uc *UploadUseCase) Delete(ctx context.Context, id string) error {
	upload, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.store.RemoveObject(ctx, upload.ObjectKey); err != nil {
		return apperrors.Wrap(err, apperrors.ErrUploadStorage, "")
	}
	return uc.repo.Delete(ctx, id)
}
