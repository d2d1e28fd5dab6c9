package biz

import (
	"context"
	"testing"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCredentialCreateValidation(t *testing.T) {
	uc := NewCredentialUseCase(newFakeRepo(), zap.NewNop())

	_, err := uc.Create(context.Background(), &Credential{Host: "smtp.qq.com"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailCredInvalid))
}

func TestCredentialCreateDefaultsAndMask(t *testing.T) {
	uc := NewCredentialUseCase(newFakeRepo(), zap.NewNop())

	created, err := uc.Create(context.Background(), &Credential{
		Host:     "smtp.qq.com",
		Username: "sender@qq.com",
		Secret:   "authcode",
	})
	require.NoError(t, err)
	assert.Equal(t, 465, created.Port)
	assert.Equal(t, "sender@qq.com", created.From)
	assert.Equal(t, "sender@qq.com", created.Name)
	assert.Equal(t, SecretMask, created.Secret)
	assert.True(t, created.Active)
}

func TestCredentialListMasksSecret(t *testing.T) {
	repo := newFakeRepo(testCred("a", "a", 465))
	uc := NewCredentialUseCase(repo, zap.NewNop())

	creds, err := uc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, SecretMask, creds[0].Secret)

	// 仓储里的原始密码不受影响
	raw, _ := repo.GetByID(context.Background(), "a")
	assert.Equal(t, "secret", raw.Secret)
}

func TestCredentialDeleteReturnsName(t *testing.T) {
	repo := newFakeRepo(testCred("a", "qq-main", 465))
	uc := NewCredentialUseCase(repo, zap.NewNop())

	name, err := uc.Delete(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "qq-main", name)

	_, err = uc.Delete(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrEmailCredNotFound))
}

func TestCredentialToggleActive(t *testing.T) {
	repo := newFakeRepo(testCred("a", "a", 465))
	uc := NewCredentialUseCase(repo, zap.NewNop())

	state, err := uc.ToggleActive(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, state)

	state, err = uc.ToggleActive(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, state)
}
