package biz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>社团动态</title>
    <item>
      <guid>https://example.com/posts/1</guid>
      <title>第一篇</title>
      <link>https://example.com/posts/1</link>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0800</pubDate>
      <content:encoded><![CDATA[<p>正文</p><script>alert(1)</script>]]></content:encoded>
    </item>
    <item>
      <title>只有描述</title>
      <link>https://example.com/posts/2</link>
      <description><![CDATA[<b>摘要</b>]]></description>
    </item>
    <item>
      <title>  </title>
      <link>https://example.com/posts/3</link>
    </item>
  </channel>
</rss>`

func TestParseFeed(t *testing.T) {
	f := NewRSSFetcher("http://unused")
	articles, err := f.parse([]byte(sampleFeed))
	require.NoError(t, err)
	// 空标题的条目被丢弃
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "https://example.com/posts/1", first.GUID)
	assert.Equal(t, "第一篇", first.Title)
	// script 标签被消毒
	assert.Contains(t, first.Content, "<p>正文</p>")
	assert.NotContains(t, first.Content, "script")
	assert.Equal(t, 2006, first.Published.Year())

	// 没有 content:encoded 时退回 description，没有 guid 时退回 link
	second := articles[1]
	assert.Equal(t, "https://example.com/posts/2", second.GUID)
	assert.Contains(t, second.Content, "摘要")
	assert.True(t, second.Published.IsZero())
}

func TestFetchFeedHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewRSSFetcher(srv.URL)
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchFeedOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewRSSFetcher(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	articles, err := f.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}
