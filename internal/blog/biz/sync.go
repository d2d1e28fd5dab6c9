package biz

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/halo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	articlesCacheKey = "blog:articles"
	lastSyncKey      = "blog:last_sync"
)

// Publisher 博客发布端接口
type Publisher interface {
	ListPostNames(ctx context.Context) ([]string, error)
	CreatePost(ctx context.Context, post *halo.Post) error
}

// SyncReport 单次同步结果
type SyncReport struct {
	Total     int       `json:"total"`
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// SyncUseCase RSS 到 Halo 的镜像同步
type SyncUseCase struct {
	fetcher  FeedFetcher
	pub      Publisher
	redis    *redis.Client // 可为 nil，此时不缓存
	cacheTTL time.Duration
	log      *zap.Logger
	running  atomic.Bool
}

func NewSyncUseCase(fetcher FeedFetcher, pub Publisher, redisClient *redis.Client, cacheTTL time.Duration, log *zap.Logger) *SyncUseCase {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &SyncUseCase{
		fetcher:  fetcher,
		pub:      pub,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// postName 由 GUID 派生的稳定标识，同一篇文章重复同步不会重复建帖
func postName(guid string) string {
	sum := sha1.Sum([]byte(guid))
	return "rss-" + hex.EncodeToString(sum[:])[:16]
}

// SyncOnce 执行一次同步。已在运行时拒绝并发触发。
func (uc *SyncUseCase) SyncOnce(ctx context.Context) (*SyncReport, error) {
	if !uc.running.CompareAndSwap(false, true) {
		return nil, apperrors.New(apperrors.ErrBlogSyncRunning, "")
	}
	defer uc.running.Store(false)

	started := time.Now()
	articles, err := uc.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := uc.pub.ListPostNames(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrBlogHaloUnavail, "list posts")
	}
	known := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		known[name] = struct{}{}
	}

	report := &SyncReport{Total: len(articles), StartedAt: started}
	for _, article := range articles {
		name := postName(article.GUID)
		if _, ok := known[name]; ok {
			report.Skipped++
			continue
		}

		post := &halo.Post{
			Name:    name,
			Title:   article.Title,
			Slug:    name,
			Content: article.Content,
			Publish: true,
		}
		if err := uc.pub.CreatePost(ctx, post); err != nil {
			uc.log.Warn("mirror post failed",
				zap.Error(err),
				zap.String("title", article.Title))
			report.Failed++
			continue
		}
		report.Created++
	}

	report.Duration = time.Since(started).String()
	uc.cacheResults(ctx, articles, report)

	uc.log.Info("blog sync finished",
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// cacheResults 把文章列表和同步报告写入 redis，失败只打日志
func (uc *SyncUseCase) cacheResults(ctx context.Context, articles []*Article, report *SyncReport) {
	if uc.redis == nil {
		return
	}

	if data, err := json.Marshal(articles); err == nil {
		if err := uc.redis.Set(ctx, articlesCacheKey, data, uc.cacheTTL).Err(); err != nil {
			uc.log.Warn("cache articles failed", zap.Error(err))
		}
	}
	if data, err := json.Marshal(report); err == nil {
		if err := uc.redis.Set(ctx, lastSyncKey, data, 0).Err(); err != nil {
			uc.log.Warn("cache sync report failed", zap.Error(err))
		}
	}
}

// CachedArticles 读取缓存的文章列表，缓存未命中时现抓一次
func (uc *SyncUseCase) CachedArticles(ctx context.Context) ([]*Article, error) {
	if uc.redis != nil {
		if data, err := uc.redis.Get(ctx, articlesCacheKey).Bytes(); err == nil {
			var articles []*Article
			if err := json.Unmarshal(data, &articles); err == nil {
				return articles, nil
			}
		}
	}

	articles, err := uc.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if uc.redis != nil {
		if data, err := json.Marshal(articles); err == nil {
			if err := uc.redis.Set(ctx, articlesCacheKey, data, uc.cacheTTL).Err(); err != nil {
				uc.log.Warn("cache articles failed", zap.Error(err))
			}
		}
	}
	return articles, nil
}

// LastReport 上一次同步报告，没有同步过返回 nil
func (uc *SyncUseCase) LastReport(ctx context.Context) (*SyncReport, error) {
	if uc.redis == nil {
		return nil, nil
	}

	data, err := uc.redis.Get(ctx, lastSyncKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read sync report: %w", err)
	}

	var report SyncReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode sync report: %w", err)
	}
	return &report, nil
}

// Running 当前是否有同步在执行
func (uc *SyncUseCase) Running() bool {
	return uc.running.Load()
}

// Run 周期同步循环，阻塞直到 ctx 取消
func (uc *SyncUseCase) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.log.Info("blog sync loop stopped")
			return
		case <-ticker.C:
			if _, err := uc.SyncOnce(ctx); err != nil {
				if !apperrors.Is(err, apperrors.ErrBlogSyncRunning) {
					uc.log.Error("scheduled blog sync failed", zap.Error(err))
				}
			}
		}
	}
}
