package data

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/user/biz"
	"gorm.io/gorm"
)

// StringArrayJSON 以 jsonb 存储的字符串数组
type StringArrayJSON []string

func (a StringArrayJSON) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArrayJSON) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
	return json.Unmarshal(raw, (*[]string)(a))
}

// UserPO 管理员账号数据库模型
type UserPO struct {
	ID           string          `gorm:"type:uuid;primaryKey"`
	Username     string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	PasswordHash string          `gorm:"type:varchar(128);not null"`
	Role         string          `gorm:"type:varchar(32);not null;default:admin"`
	Permissions  StringArrayJSON `gorm:"type:jsonb;not null;default:'[]'"`
	Active       bool            `gorm:"not null;default:true;index"`
	LastLoginAt  time.Time       `gorm:""`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

func (UserPO) TableName() string {
	return "admin_users"
}

func (po *UserPO) toDomain() *biz.User {
	return &biz.User{
		ID:          po.ID,
		Username:    po.Username,
		Role:        po.Role,
		Permissions: []string(po.Permissions),
		Active:      po.Active,
		LastLoginAt: po.LastLoginAt,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}
}

// UserRepo 管理员存储实现
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *biz.User, passwordHash string) error {
	po := &UserPO{
		ID:           uuid.New().String(),
		Username:     user.Username,
		PasswordHash: passwordHash,
		Role:         user.Role,
		Permissions:  StringArrayJSON(user.Permissions),
		Active:       user.Active,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.New(apperrors.ErrUserExists, user.Username)
		}
		return fmt.Errorf("create admin user: %w", err)
	}

	user.ID = po.ID
	user.CreatedAt = po.CreatedAt
	user.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*biz.User, error) {
	var po UserPO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return po.toDomain(), nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*biz.User, string, error) {
	var po UserPO
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.New(apperrors.ErrUserNotFound, username)
		}
		return nil, "", fmt.Errorf("get admin user by username: %w", err)
	}
	return po.toDomain(), po.PasswordHash, nil
}

func (r *UserRepo) List(ctx context.Context) ([]*biz.User, error) {
	var pos []UserPO
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}

	users := make([]*biz.User, 0, len(pos))
	for i := range pos {
		users = append(users, pos[i].toDomain())
	}
	return users, nil
}

func (r *UserRepo) Update(ctx context.Context, id string, input *biz.UpdateUserInput, passwordHash string) error {
	fields := make(map[string]interface{})
	if passwordHash != "" {
		fields["password_hash"] = passwordHash
	}
	if input.Role != nil {
		fields["role"] = *input.Role
	}
	if input.Permissions != nil {
		fields["permissions"] = StringArrayJSON(*input.Permissions)
	}
	if input.Active != nil {
		fields["active"] = *input.Active
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&UserPO{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("update admin user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrUserNotFound, id)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserPO{})
	if result.Error != nil {
		return fmt.Errorf("delete admin user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrUserNotFound, id)
	}
	return nil
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&UserPO{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now()).Error
}
