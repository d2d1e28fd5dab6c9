package biz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/stage-portal-backend/internal/auth"
	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*User
	hashes map[string]string
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User), hashes: make(map[string]string)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *User, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return apperrors.New(apperrors.ErrUserExists, user.Username)
		}
	}
	r.nextID++
	user.ID = string(rune('a' + r.nextID - 1))
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	r.hashes[user.ID] = passwordHash
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUserNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*User, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, r.hashes[id], nil
		}
	}
	return nil, "", apperrors.New(apperrors.ErrUserNotFound, username)
}

func (r *fakeUserRepo) List(_ context.Context) ([]*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, id string, input *UpdateUserInput, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.New(apperrors.ErrUserNotFound, id)
	}
	if passwordHash != "" {
		r.hashes[id] = passwordHash
	}
	if input.Role != nil {
		u.Role = *input.Role
	}
	if input.Permissions != nil {
		u.Permissions = *input.Permissions
	}
	if input.Active != nil {
		u.Active = *input.Active
	}
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return apperrors.New(apperrors.ErrUserNotFound, id)
	}
	delete(r.users, id)
	delete(r.hashes, id)
	return nil
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLoginAt = time.Now()
	}
	return nil
}

func newTestUseCase(t *testing.T) (*UserUseCase, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	jwt := auth.NewJWTManager("test-secret", "stage-portal-backend", time.Hour)
	return NewUserUseCase(repo, jwt, zap.NewNop()), repo
}

func TestCreateUserDefaults(t *testing.T) {
	uc, repo := newTestUseCase(t)

	user, err := uc.Create(context.Background(), CreateUserInput{
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, user.Role)
	assert.True(t, user.Active)
	// 密码以 bcrypt 存储，不落明文
	assert.NotEqual(t, "password123", repo.hashes[user.ID])
	assert.NotEmpty(t, repo.hashes[user.ID])
}

func TestCreateUserValidation(t *testing.T) {
	uc, _ := newTestUseCase(t)

	_, err := uc.Create(context.Background(), CreateUserInput{Username: "alice"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUserInvalidInput))

	_, err = uc.Create(context.Background(), CreateUserInput{Username: "alice", Password: "short"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUserInvalidInput))

	_, err = uc.Create(context.Background(), CreateUserInput{Username: "alice", Password: "password123", Role: "root"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUserInvalidInput))
}

func TestLoginSuccess(t *testing.T) {
	uc, _ := newTestUseCase(t)
	user, err := uc.Create(context.Background(), CreateUserInput{
		Username:    "alice",
		Password:    "password123",
		Role:        RoleSuperAdmin,
		Permissions: []string{"email:send"},
	})
	require.NoError(t, err)

	result, err := uc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, user.ID, result.User.ID)

	jwt := auth.NewJWTManager("test-secret", "stage-portal-backend", time.Hour)
	claims, err := jwt.VerifyAccessToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, claims.Role)
	assert.Equal(t, []string{"email:send"}, claims.Permissions)
}

func TestLoginWrongPassword(t *testing.T) {
	uc, _ := newTestUseCase(t)
	_, err := uc.Create(context.Background(), CreateUserInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	_, err = uc.Login(context.Background(), "alice", "wrong-password")
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthInvalidCredentials))

	// 用户不存在时返回相同错误码
	_, err = uc.Login(context.Background(), "nobody", "password123")
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthInvalidCredentials))
}

func TestLoginDisabledAccount(t *testing.T) {
	uc, repo := newTestUseCase(t)
	user, err := uc.Create(context.Background(), CreateUserInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	inactive := false
	require.NoError(t, repo.Update(context.Background(), user.ID, &UpdateUserInput{Active: &inactive}, ""))

	_, err = uc.Login(context.Background(), "alice", "password123")
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthAccountDisabled))
}

func TestDeleteSelfForbidden(t *testing.T) {
	uc, _ := newTestUseCase(t)
	user, err := uc.Create(context.Background(), CreateUserInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	err = uc.Delete(context.Background(), user.ID, user.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrUserSelfDelete))

	// 删除他人正常
	other, err := uc.Create(context.Background(), CreateUserInput{Username: "bob", Password: "password123"})
	require.NoError(t, err)
	assert.NoError(t, uc.Delete(context.Background(), other.ID, user.ID))
}
