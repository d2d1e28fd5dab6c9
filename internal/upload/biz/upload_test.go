package biz

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploadRepo struct {
	uploads   map[string]*Upload
	createErr error
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: make(map[string]*Upload)}
}

func (r *fakeUploadRepo) Create(_ context.Context, upload *Upload) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *upload
	r.uploads[upload.ID] = &cp
	return nil
}

func (r *fakeUploadRepo) GetByID(_ context.Context, id string) (*Upload, error) {
	u, ok := r.uploads[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrUploadNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUploadRepo) List(_ context.Context) ([]*Upload, error) {
	out := make([]*Upload, 0, len(r.uploads))
	for _, u := range r.uploads {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeUploadRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.uploads[id]; !ok {
		return apperrors.New(apperrors.ErrUploadNotFound, id)
	}
	delete(r.uploads, id)
	return nil
}

type fakeStore struct {
	objects map[string][]byte
	removed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) PutObject(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) PresignedGetObject(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://minio.local/" + key, nil
}

func (s *fakeStore) RemoveObject(_ context.Context, key string) error {
	s.removed = append(s.removed, key)
	delete(s.objects, key)
	return nil
}

func TestUploadSuccess(t *testing.T) {
	repo := newFakeUploadRepo()
	store := newFakeStore()
	uc := NewUploadUseCase(repo, store, zap.NewNop())

	content := []byte("fake png bytes")
	upload, err := uc.Upload(context.Background(), "poster.png", int64(len(content)), bytes.NewReader(content), "alice")
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.ContentType)
	assert.Equal(t, "alice", upload.UploadedBy)
	assert.Contains(t, upload.ObjectKey, upload.ID)
	assert.Equal(t, content, store.objects[upload.ObjectKey])
}

func TestUploadRejectsBadType(t *testing.T) {
	uc := NewUploadUseCase(newFakeUploadRepo(), newFakeStore(), zap.NewNop())

	_, err := uc.Upload(context.Background(), "malware.exe", 10, bytes.NewReader(make([]byte, 10)), "alice")
	assert.True(t, apperrors.Is(err, apperrors.ErrUploadBadType))
}

func TestUploadRejectsTooLarge(t *testing.T) {
	uc := NewUploadUseCase(newFakeUploadRepo(), newFakeStore(), zap.NewNop())

	_, err := uc.Upload(context.Background(), "movie.mp4", MaxFileSize+1, bytes.NewReader(nil), "alice")
	assert.True(t, apperrors.Is(err, apperrors.ErrUploadTooLarge))
}

func TestUploadCleansUpOnMetadataFailure(t *testing.T) {
	repo := newFakeUploadRepo()
	repo.createErr = apperrors.New(apperrors.ErrInternalServer, "db down")
	store := newFakeStore()
	uc := NewUploadUseCase(repo, store, zap.NewNop())

	content := []byte("data")
	_, err := uc.Upload(context.Background(), "a.jpg", int64(len(content)), bytes.NewReader(content), "alice")
	require.Error(t, err)
	// 元数据失败后对象被回收
	assert.Len(t, store.removed, 1)
	assert.Empty(t, store.objects)
}

func TestDeleteRemovesObjectAndRecord(t *testing.T) {
	repo := newFakeUploadRepo()
	store := newFakeStore()
	uc := NewUploadUseCase(repo, store, zap.NewNop())

	content := []byte("data")
	upload, err := uc.Upload(context.Background(), "a.pdf", int64(len(content)), bytes.NewReader(content), "alice")
	require.NoError(t, err)

	require.NoError(t, uc.Delete(context.Background(), upload.ID))
	assert.Empty(t, store.objects)
	_, err = repo.GetByID(context.Background(), upload.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrUploadNotFound))
}

func TestDownloadURL(t *testing.T) {
	repo := newFakeUploadRepo()
	store := newFakeStore()
	uc := NewUploadUseCase(repo, store, zap.NewNop())

	content := []byte("data")
	upload, err := uc.Upload(context.Background(), "a.zip", int64(len(content)), bytes.NewReader(content), "alice")
	require.NoError(t, err)

	url, err := uc.DownloadURL(context.Background(), upload.ID, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, upload.ObjectKey)
}
