package biz

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/halo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	articles []*Article
	err      error
	block    chan struct{} // 非 nil 时 Fetch 阻塞直到关闭
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]*Article, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.articles, f.err
}

type fakePublisher struct {
	mu      sync.Mutex
	names   []string
	created []*halo.Post
	err     error
}

func (p *fakePublisher) ListPostNames(ctx context.Context) ([]string, error) {
	return p.names, nil
}

func (p *fakePublisher) CreatePost(ctx context.Context, post *halo.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.created = append(p.created, post)
	return nil
}

func TestSyncOnceCreatesOnlyNewPosts(t *testing.T) {
	articles := []*Article{
		{GUID: "g1", Title: "one", Content: "<p>a</p>"},
		{GUID: "g2", Title: "two", Content: "<p>b</p>"},
	}
	pub := &fakePublisher{names: []string{postName("g1")}}
	uc := NewSyncUseCase(&fakeFetcher{articles: articles}, pub, nil, 0, zap.NewNop())

	report, err := uc.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	require.Len(t, pub.created, 1)
	assert.Equal(t, "two", pub.created[0].Title)
	assert.Equal(t, postName("g2"), pub.created[0].Name)
	assert.True(t, pub.created[0].Publish)
}

func TestSyncOnceRejectsConcurrentRun(t *testing.T) {
	block := make(chan struct{})
	uc := NewSyncUseCase(&fakeFetcher{block: block}, &fakePublisher{}, nil, 0, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = uc.SyncOnce(context.Background())
	}()

	// 等第一次同步进入抓取阶段
	require.Eventually(t, uc.Running, time.Second, 5*time.Millisecond)

	_, err := uc.SyncOnce(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrBlogSyncRunning))

	close(block)
	<-done
	assert.False(t, uc.Running())
}

func TestPostNameStable(t *testing.T) {
	assert.Equal(t, postName("guid-x"), postName("guid-x"))
	assert.NotEqual(t, postName("guid-x"), postName("guid-y"))
	assert.Len(t, postName("guid-x"), len("rss-")+16)
}
