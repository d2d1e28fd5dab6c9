package data

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/stage-portal-backend/internal/email/biz"
	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"gorm.io/gorm"
)

// CredentialPO SMTP 凭证数据库模型
type CredentialPO struct {
	ID           string     `gorm:"type:uuid;primarykey"`
	Name         string     `gorm:"size:255;not null"`
	Host         string     `gorm:"size:255;not null"`
	Port         int        `gorm:"not null;default:465"`
	Secure       bool       `gorm:"not null;default:false"`
	Username     string     `gorm:"size:255;not null"`
	Secret       string     `gorm:"size:512;not null"`
	From         string     `gorm:"column:from_addr;size:255"`
	Active       bool       `gorm:"not null;default:true;index:idx_smtp_credentials_active"`
	SuccessCount int64      `gorm:"not null;default:0"`
	FailureCount int64      `gorm:"not null;default:0"`
	LastUsed     *time.Time `gorm:"column:last_used"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CredentialPO) TableName() string {
	return "smtp_credentials"
}

// CredentialRepo 凭证仓储实现
type CredentialRepo struct {
	db *gorm.DB
}

func NewCredentialRepo(db *gorm.DB) biz.CredentialRepo {
	return &CredentialRepo{db: db}
}

func toDomain(po *CredentialPO) *biz.Credential {
	return &biz.Credential{
		ID:           po.ID,
		Name:         po.Name,
		Host:         po.Host,
		Port:         po.Port,
		Secure:       po.Secure,
		Username:     po.Username,
		Secret:       po.Secret,
		From:         po.From,
		Active:       po.Active,
		SuccessCount: po.SuccessCount,
		FailureCount: po.FailureCount,
		LastUsed:     po.LastUsed,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}

// Create 创建凭证，ID 在这里分配且不复用
func (r *CredentialRepo) Create(ctx context.Context, cred *biz.Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	now := time.Now()
	po := &CredentialPO{
		ID:        cred.ID,
		Name:      cred.Name,
		Host:      cred.Host,
		Port:      cred.Port,
		Secure:    cred.Secure,
		Username:  cred.Username,
		Secret:    cred.Secret,
		From:      cred.From,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred.Active = true
	cred.CreatedAt = now
	cred.UpdatedAt = now

	return r.db.WithContext(ctx).Create(po).Error
}

// GetByID 按 ID 查询
func (r *CredentialRepo) GetByID(ctx context.Context, id string) (*biz.Credential, error) {
	var po CredentialPO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.ErrEmailCredNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return toDomain(&po), nil
}

// Update 只更新提供的字段
func (r *CredentialRepo) Update(ctx context.Context, id string, update *biz.CredentialUpdate) (*biz.Credential, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Host != nil {
		fields["host"] = *update.Host
	}
	if update.Port != nil {
		fields["port"] = *update.Port
	}
	if update.Secure != nil {
		fields["secure"] = *update.Secure
	}
	if update.Username != nil {
		fields["username"] = *update.Username
	}
	if update.Secret != nil {
		fields["secret"] = *update.Secret
	}
	if update.From != nil {
		fields["from_addr"] = *update.From
	}
	fields["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&CredentialPO{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.New(apperrors.ErrEmailCredNotFound, id)
	}

	return r.GetByID(ctx, id)
}

// Delete 删除凭证，返回名称
func (r *CredentialRepo) Delete(ctx context.Context, id string) (string, error) {
	var po CredentialPO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.New(apperrors.ErrEmailCredNotFound, id)
	}
	if err != nil {
		return "", err
	}

	if err := r.db.WithContext(ctx).Delete(&CredentialPO{}, "id = ?", id).Error; err != nil {
		return "", err
	}
	return po.Name, nil
}

// ToggleActive 翻转启用状态并返回新值
func (r *CredentialRepo) ToggleActive(ctx context.Context, id string) (bool, error) {
	var po CredentialPO
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperrors.New(apperrors.ErrEmailCredNotFound, id)
	}
	if err != nil {
		return false, err
	}

	next := !po.Active
	err = r.db.WithContext(ctx).Model(&CredentialPO{}).Where("id = ?", id).
		Updates(map[string]interface{}{"active": next, "updated_at": time.Now()}).Error
	if err != nil {
		return false, err
	}
	return next, nil
}

// List 全部凭证，创建序
func (r *CredentialRepo) List(ctx context.Context) ([]*biz.Credential, error) {
	var pos []CredentialPO
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&pos).Error; err != nil {
		return nil, err
	}
	creds := make([]*biz.Credential, len(pos))
	for i := range pos {
		creds[i] = toDomain(&pos[i])
	}
	return creds, nil
}

// ListActive 启用凭证，轮询顺序以创建序为准
func (r *CredentialRepo) ListActive(ctx context.Context) ([]*biz.Credential, error) {
	var pos []CredentialPO
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at ASC").Find(&pos).Error; err != nil {
		return nil, err
	}
	creds := make([]*biz.Credential, len(pos))
	for i := range pos {
		creds[i] = toDomain(&pos[i])
	}
	return creds, nil
}

// RecordOutcome 单语句自增计数，成功时顺带刷新 last_used。
// 凭证在发送途中被删除时 RowsAffected 为 0，不视为错误。
func (r *CredentialRepo) RecordOutcome(ctx context.Context, id string, success bool) error {
	fields := map[string]interface{}{}
	if success {
		fields["success_count"] = gorm.Expr("success_count + 1")
		fields["last_used"] = time.Now()
	} else {
		fields["failure_count"] = gorm.Expr("failure_count + 1")
	}

	return r.db.WithContext(ctx).Model(&CredentialPO{}).Where("id = ?", id).Updates(fields).Error
}
