package biz

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/lk2023060901/stage-portal-backend/internal/pkg/errors"
	"github.com/microcosm-cc/bluemonday"
)

// Article 订阅源里的一篇文章，正文已消毒
type Article struct {
	GUID      string    `json:"guid"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Content   string    `json:"content"`
	Published time.Time `json:"published"`
}

// FeedFetcher 订阅源抓取接口
type FeedFetcher interface {
	Fetch(ctx context.Context) ([]*Article, error)
}

// RSS 2.0 文档结构，只取同步需要的字段
type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
}

// RSSFetcher 抓取并解析 RSS 2.0 订阅源
type RSSFetcher struct {
	feedURL string
	http    *http.Client
	policy  *bluemonday.Policy
}

func NewRSSFetcher(feedURL string) *RSSFetcher {
	return &RSSFetcher{
		feedURL: feedURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		policy:  bluemonday.UGCPolicy(),
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context) ([]*Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrBlogFeedUnavail, f.feedURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrBlogFeedUnavail, fmt.Sprintf("feed returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrBlogFeedUnavail, "read feed body")
	}

	return f.parse(body)
}

func (f *RSSFetcher) parse(body []byte) ([]*Article, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrBlogFeedUnavail, "parse feed xml")
	}

	articles := make([]*Article, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		// content:encoded 优先于 description
		raw := item.Encoded
		if strings.TrimSpace(raw) == "" {
			raw = item.Description
		}

		guid := strings.TrimSpace(item.GUID)
		if guid == "" {
			guid = strings.TrimSpace(item.Link)
		}
		if guid == "" {
			guid = title
		}

		articles = append(articles, &Article{
			GUID:      guid,
			Title:     title,
			Link:      strings.TrimSpace(item.Link),
			Content:   f.policy.Sanitize(raw),
			Published: parsePubDate(item.PubDate),
		})
	}
	return articles, nil
}

// parsePubDate 解析常见的 RSS 时间格式，解析失败返回零值
func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
