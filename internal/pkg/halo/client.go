package halo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Config Halo 博客配置
type Config struct {
	BaseURL string
	Token   string // Personal Access Token
}

// Post Halo 文章
type Post struct {
	Name    string // metadata.name，幂等同步用的稳定标识
	Title   string
	Slug    string
	Content string // HTML 正文
	Publish bool
}

// Client Halo 控制台 API 客户端
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

// PostExists 按 metadata.name 查询文章是否已存在
func (c *Client) PostExists(ctx context.Context, name string) (bool, error) {
	body, status, err := c.request(ctx, http.MethodGet, "/apis/content.halo.run/v1alpha1/posts/"+name, nil)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("halo get post: %d %s", status, string(body))
	}
	return true, nil
}

// CreatePost 创建并发布文章
func (c *Client) CreatePost(ctx context.Context, post *Post) error {
	payload, err := json.Marshal(map[string]interface{}{
		"post": map[string]interface{}{
			"apiVersion": "content.halo.run/v1alpha1",
			"kind":       "Post",
			"metadata":   map[string]interface{}{"name": post.Name},
			"spec": map[string]interface{}{
				"title":   post.Title,
				"slug":    post.Slug,
				"publish": post.Publish,
				"deleted": false,
			},
		},
		"content": map[string]interface{}{
			"raw":     post.Content,
			"content": post.Content,
			"rawType": "HTML",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal halo post: %w", err)
	}

	body, status, err := c.request(ctx, http.MethodPost, "/apis/api.console.halo.run/v1alpha1/posts", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("halo create post: %d %s", status, string(body))
	}

	c.logger.Info("halo post created",
		zap.String("name", post.Name),
		zap.String("title", post.Title))
	return nil
}

// ListPostNames 列出已有文章的 metadata.name
func (c *Client) ListPostNames(ctx context.Context) ([]string, error) {
	body, status, err := c.request(ctx, http.MethodGet, "/apis/content.halo.run/v1alpha1/posts?size=500", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("halo list posts: %d %s", status, string(body))
	}

	var names []string
	gjson.GetBytes(body, "items.#.metadata.name").ForEach(func(_, value gjson.Result) bool {
		names = append(names, value.String())
		return true
	})
	return names, nil
}

// request 带重试的请求。网络错误和 5xx 重试，4xx 交给调用方判断。
func (c *Client) request(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("halo server error: %d", resp.StatusCode))
		}

		body = data
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return body, status, nil
}
