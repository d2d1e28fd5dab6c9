package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const tenantTokenKey = "feishu:tenant_access_token"

// Config 飞书开放平台配置
type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string
	AppToken  string // 多维表格 app token
	TableID   string
}

// Client 飞书多维表格客户端。报名数据的真实存储在飞书侧，
// 这里只负责鉴权、重试和响应解析。
type Client struct {
	cfg    Config
	http   *http.Client
	redis  *redis.Client // 可为 nil，此时不缓存 token
	logger *zap.Logger
}

func NewClient(cfg Config, redisClient *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		redis:  redisClient,
		logger: logger,
	}
}

// tenantToken 获取租户访问令牌，优先走 redis 缓存
func (c *Client) tenantToken(ctx context.Context) (string, error) {
	if c.redis != nil {
		if token, err := c.redis.Get(ctx, tenantTokenKey).Result(); err == nil && token != "" {
			return token, nil
		}
	}

	payload, _ := json.Marshal(map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	})

	body, err := c.post(ctx, "/open-apis/auth/v3/tenant_access_token/internal", "", payload)
	if err != nil {
		return "", fmt.Errorf("fetch tenant token: %w", err)
	}

	result := gjson.ParseBytes(body)
	if code := result.Get("code").Int(); code != 0 {
		return "", fmt.Errorf("feishu auth error %d: %s", code, result.Get("msg").String())
	}

	token := result.Get("tenant_access_token").String()
	expire := result.Get("expire").Int()

	if c.redis != nil && token != "" && expire > 300 {
		// 提前 5 分钟过期，避免用到临期 token
		if err := c.redis.Set(ctx, tenantTokenKey, token, time.Duration(expire-300)*time.Second).Err(); err != nil {
			c.logger.Warn("failed to cache feishu token", zap.Error(err))
		}
	}

	return token, nil
}

// request 带鉴权与重试的请求。仅网络错误和 5xx 重试，业务错误码不重试。
func (c *Client) request(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	token, err := c.tenantToken(ctx)
	if err != nil {
		return nil, err
	}

	var body []byte
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

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
			return retry.RetryableError(fmt.Errorf("feishu server error: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("feishu request failed: %d %s", resp.StatusCode, string(data))
		}

		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	if code := result.Get("code").Int(); code != 0 {
		return nil, fmt.Errorf("feishu api error %d: %s", code, result.Get("msg").String())
	}

	return body, nil
}

// post 不带鉴权的裸请求（仅用于换取 token）
func (c *Client) post(ctx context.Context, path, token string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}
