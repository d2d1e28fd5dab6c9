package biz

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"go.uber.org/zap"
)

// SecretMask 对外返回凭证时密码的固定掩码
const SecretMask = "******"

// Credential SMTP 发信凭证（领域模型）
type Credential struct {
	ID           string
	Name         string
	Host         string
	Port         int
	Secure       bool // 显式 TLS 开关，独立于端口约定
	Username     string
	Secret       string
	From         string
	Active       bool
	SuccessCount int64
	FailureCount int64
	LastUsed     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CredentialUpdate 部分更新参数，nil 字段不修改
type CredentialUpdate struct {
	Name     *string
	Host     *string
	Port     *int
	Secure   *bool
	Username *string
	Secret   *string
	From     *string
}

// CredentialRepo 凭证存储接口
type CredentialRepo interface {
	Create(ctx context.Context, cred *Credential) error
	GetByID(ctx context.Context, id string) (*Credential, error)
	Update(ctx context.Context, id string, update *CredentialUpdate) (*Credential, error)
	Delete(ctx context.Context, id string) (string, error)
	ToggleActive(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Credential, error)
	ListActive(ctx context.Context) ([]*Credential, error)
	RecordOutcome(ctx context.Context, id string, success bool) error
}

// CredentialUseCase 凭证管理业务逻辑
type CredentialUseCase struct {
	repo CredentialRepo
	log  *zap.Logger
}

func NewCredentialUseCase(repo CredentialRepo, log *zap.Logger) *CredentialUseCase {
	return &CredentialUseCase{repo: repo, log: log}
}

// Create 创建凭证，host/username/secret 必填，返回掩码后的记录
func (uc *CredentialUseCase) Create(ctx context.Context, cred *Credential) (*Credential, error) {
	if strings.TrimSpace(cred.Host) == "" ||
		strings.TrimSpace(cred.Username) == "" ||
		strings.TrimSpace(cred.Secret) == "" {
		return nil, apperrors.New(apperrors.ErrEmailCredInvalid, "host, username and secret are required")
	}

	if cred.Port == 0 {
		cred.Port = 465
	}
	if cred.From == "" {
		cred.From = cred.Username
	}
	if cred.Name == "" {
		cred.Name = cred.Username
	}

	if err := uc.repo.Create(ctx, cred); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}

	masked := *cred
	masked.Secret = SecretMask
	return &masked, nil
}

// Update 部分更新凭证
func (uc *CredentialUseCase) Update(ctx context.Context, id string, update *CredentialUpdate) (*Credential, error) {
	cred, err := uc.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	cred.Secret = SecretMask
	return cred, nil
}

// Delete 删除凭证，返回被删凭证的名称供调用方记录日志
func (uc *CredentialUseCase) Delete(ctx context.Context, id string) (string, error) {
	return uc.repo.Delete(ctx, id)
}

// ToggleActive 切换启用状态，返回新状态
func (uc *CredentialUseCase) ToggleActive(ctx context.Context, id string) (bool, error) {
	return uc.repo.ToggleActive(ctx, id)
}

// List 列出全部凭证（密码掩码）
func (uc *CredentialUseCase) List(ctx context.Context) ([]*Credential, error) {
	creds, err := uc.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
	for _, c := range creds {
		c.Secret = SecretMask
	}
	return creds, nil
}

// IsConfigured 是否存在可用凭证
func (uc *CredentialUseCase) IsConfigured(ctx context.Context) bool {
	creds, err := uc.repo.ListActive(ctx)
	if err != nil {
		uc.log.Warn("failed to check credential pool", zap.Error(err))
		return false
	}
	return len(creds) > 0
}
