package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/stage-portal-backend/internal/auth"
	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 管理员角色
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)

// User 管理员账号
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	Active      bool      `json:"active"`
	LastLoginAt time.Time `json:"last_login_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateUserInput 创建管理员参数
type CreateUserInput struct {
	Username    string
	Password    string
	Role        string
	Permissions []string
}

// UpdateUserInput 更新管理员参数，nil 字段不变
type UpdateUserInput struct {
	Password    *string
	Role        *string
	Permissions *[]string
	Active      *bool
}

// UserRepo 管理员存储接口
type UserRepo interface {
	Create(ctx context.Context, user *User, passwordHash string) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, string, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id string, input *UpdateUserInput, passwordHash string) error
	Delete(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string) error
}

// UserUseCase 管理员账号业务逻辑
type UserUseCase struct {
	repo UserRepo
	jwt  *auth.JWTManager
	log  *zap.Logger
}

func NewUserUseCase(repo UserRepo, jwt *auth.JWTManager, log *zap.Logger) *UserUseCase {
	return &UserUseCase{repo: repo, jwt: jwt, log: log}
}

func validRole(role string) bool {
	return role == RoleSuperAdmin || role == RoleAdmin
}

// Create 创建管理员账号
func (uc *UserUseCase) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	if input.Username == "" || input.Password == "" {
		return nil, apperrors.New(apperrors.ErrUserInvalidInput, "username and password are required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.New(apperrors.ErrUserInvalidInput, "password must be at least 8 characters")
	}
	if input.Role == "" {
		input.Role = RoleAdmin
	}
	if !validRole(input.Role) {
		return nil, apperrors.New(apperrors.ErrUserInvalidInput, fmt.Sprintf("unknown role %q", input.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:    input.Username,
		Role:        input.Role,
		Permissions: input.Permissions,
		Active:      true,
	}
	if err := uc.repo.Create(ctx, user, string(hash)); err != nil {
		return nil, err
	}

	uc.log.Info("admin user created",
		zap.String("username", user.Username),
		zap.String("role", user.Role))
	return user, nil
}

// GetByID 查询管理员账号
func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*User, error) {
	return uc.repo.GetByID(ctx, id)
}

// List 管理员列表
func (uc *UserUseCase) List(ctx context.Context) ([]*User, error) {
	return uc.repo.List(ctx)
}

// Update 更新管理员账号
func (uc *UserUseCase) Update(ctx context.Context, id string, input UpdateUserInput) (*User, error) {
	if input.Role != nil && !validRole(*input.Role) {
		return nil, apperrors.New(apperrors.ErrUserInvalidInput, fmt.Sprintf("unknown role %q", *input.Role))
	}

	var hash string
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, apperrors.New(apperrors.ErrUserInvalidInput, "password must be at least 8 characters")
		}
		h, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(h)
	}

	if err := uc.repo.Update(ctx, id, &input, hash); err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, id)
}

// Delete 删除管理员账号。actorID 为当前操作者，禁止删除自己。
func (uc *UserUseCase) Delete(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return apperrors.New(apperrors.ErrUserSelfDelete, "")
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.log.Info("admin user deleted", zap.String("user_id", id), zap.String("actor_id", actorID))
	return nil
}

// LoginResult 登录结果
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login 账号密码登录，签发 JWT
func (uc *UserUseCase) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, hash, err := uc.repo.GetByUsername(ctx, username)
	if err != nil {
		// 不区分用户不存在与密码错误
		return nil, apperrors.New(apperrors.ErrAuthInvalidCredentials, "")
	}
	if !user.Active {
		return nil, apperrors.New(apperrors.ErrAuthAccountDisabled, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		uc.log.Warn("login failed", zap.String("username", username))
		return nil, apperrors.New(apperrors.ErrAuthInvalidCredentials, "")
	}

	token, err := uc.jwt.GenerateAccessToken(user.ID, user.Username, user.Role, user.Permissions)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	if err := uc.repo.TouchLastLogin(ctx, user.ID); err != nil {
		uc.log.Warn("touch last login failed", zap.Error(err), zap.String("user_id", user.ID))
	}

	uc.log.Info("admin login", zap.String("username", user.Username))
	return &LoginResult{Token: token, User: user}, nil
}
