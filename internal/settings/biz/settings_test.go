package biz

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettingRepo struct {
	settings map[string]*Setting
}

func newFakeSettingRepo() *fakeSettingRepo {
	return &fakeSettingRepo{settings: make(map[string]*Setting)}
}

func (r *fakeSettingRepo) Get(_ context.Context, key string) (*Setting, error) {
	s, ok := r.settings[key]
	if !ok {
		return nil, apperrors.New(apperrors.ErrSettingNotFound, key)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSettingRepo) List(_ context.Context) ([]*Setting, error) {
	out := make([]*Setting, 0, len(r.settings))
	for _, s := range r.settings {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSettingRepo) Upsert(_ context.Context, setting *Setting) error {
	setting.UpdatedAt = time.Now()
	cp := *setting
	r.settings[setting.Key] = &cp
	return nil
}

func (r *fakeSettingRepo) Delete(_ context.Context, key string) error {
	if _, ok := r.settings[key]; !ok {
		return apperrors.New(apperrors.ErrSettingNotFound, key)
	}
	delete(r.settings, key)
	return nil
}

func TestUpsertAndGet(t *testing.T) {
	uc := NewSettingUseCase(newFakeSettingRepo(), zap.NewNop())

	_, err := uc.Upsert(context.Background(), "portal.title", json.RawMessage(`"晚会报名"`), "alice")
	require.NoError(t, err)

	got, err := uc.Get(context.Background(), "portal.title")
	require.NoError(t, err)
	assert.JSONEq(t, `"晚会报名"`, string(got.Value))
	assert.Equal(t, "alice", got.UpdatedBy)
}

func TestUpsertRejectsInvalidJSON(t *testing.T) {
	uc := NewSettingUseCase(newFakeSettingRepo(), zap.NewNop())

	_, err := uc.Upsert(context.Background(), "portal.title", json.RawMessage(`{broken`), "alice")
	assert.True(t, apperrors.Is(err, apperrors.ErrSettingInvalid))

	_, err = uc.Upsert(context.Background(), "", json.RawMessage(`1`), "alice")
	assert.True(t, apperrors.Is(err, apperrors.ErrSettingInvalid))
}

func TestDeleteMissingSetting(t *testing.T) {
	uc := NewSettingUseCase(newFakeSettingRepo(), zap.NewNop())

	err := uc.Delete(context.Background(), "nope")
	assert.True(t, apperrors.Is(err, apperrors.ErrSettingNotFound))
}
