package biz

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"go.uber.org/zap"
)

// Setting 站点配置项，值为任意 JSON
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedBy string          `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SettingRepo 配置存储接口
type SettingRepo interface {
	Get(ctx context.Context, key string) (*Setting, error)
	List(ctx context.Context) ([]*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
	Delete(ctx context.Context, key string) error
}

// SettingUseCase 站点配置业务逻辑
type SettingUseCase struct {
	repo SettingRepo
	log  *zap.Logger
}

func NewSettingUseCase(repo SettingRepo, log *zap.Logger) *SettingUseCase {
	return &SettingUseCase{repo: repo, log: log}
}

// Get 读取单个配置项
func (uc *SettingUseCase) Get(ctx context.Context, key string) (*Setting, error) {
	if key == "" {
		return nil, apperrors.New(apperrors.ErrSettingInvalid, "key is required")
	}
	return uc.repo.Get(ctx, key)
}

// List 读取全部配置项
func (uc *SettingUseCase) List(ctx context.Context) ([]*Setting, error) {
	return uc.repo.List(ctx)
}

// Upsert 写入配置项，值必须是合法 JSON
func (uc *SettingUseCase) Upsert(ctx context.Context, key string, value json.RawMessage, updatedBy string) (*Setting, error) {
	if key == "" {
		return nil, apperrors.New(apperrors.ErrSettingInvalid, "key is required")
	}
	if !json.Valid(value) {
		return nil, apperrors.New(apperrors.ErrSettingInvalid, "value must be valid JSON")
	}

	setting := &Setting{Key: key, Value: value, UpdatedBy: updatedBy}
	if err := uc.repo.Upsert(ctx, setting); err != nil {
		return nil, err
	}

	uc.log.Info("setting updated", zap.String("key", key), zap.String("updated_by", updatedBy))
	return setting, nil
}

// Delete 删除配置项
func (uc *SettingUseCase) Delete(ctx context.Context, key string) error {
	if key == "" {
		return apperrors.New(apperrors.ErrSettingInvalid, "key is required")
	}
	return uc.repo.Delete(ctx, key)
}
