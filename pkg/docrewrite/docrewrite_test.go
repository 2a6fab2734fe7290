package docrewrite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink/internal/engine"
	"securelink/pkg/model"
)

type countingSigner struct {
	calls int
}

func (c *countingSigner) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	c.calls++
	return "https://my-bucket.s3.us-east-1.amazonaws.com/" + key + "?X-Amz-Expires=3600", nil
}

const fixture = `<html><body>
<a href="https://files.example.com/private/doc.pdf">文档</a>
<img src="https://files.example.com/private/cat.png">
<img src="data:image/png;base64,AAAA">
<a href="https://public.example.com/open.html">公开链接</a>
<video src="https://files.example.com/private/demo.mp4"></video>
<a href="https://files.example.com/done.pdf" data-securelink-processed="1">已处理</a>
</body></html>`

func paramEngine() *engine.Engine {
	cfg := model.DefaultRewriteConfig()
	cfg.MatchPattern = "https://files.example.com"
	cfg.ParamKey = "token"
	cfg.ParamValue = "abc123"
	return engine.New(cfg, nil, nil)
}

func TestRewriteDocument(t *testing.T) {
	eng := paramEngine()
	html, count, err := Rewrite(context.Background(), strings.NewReader(fixture), eng)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	href, _ := doc.Find(`a[href^="https://files.example.com/private"]`).Attr("href")
	assert.Equal(t, "https://files.example.com/private/doc.pdf?token=abc123", href)

	// 范围外与 data: 地址保持原样
	pub, _ := doc.Find(`a[href="https://public.example.com/open.html"]`).Attr("href")
	assert.Equal(t, "https://public.example.com/open.html", pub)
	assert.Equal(t, 1, doc.Find(`img[src^="data:"]`).Length())

	// 已处理元素原样保留（标记与 URL 均不变）
	done, _ := doc.Find(`a[data-securelink-processed]`).Last().Attr("href")
	assert.Equal(t, "https://files.example.com/done.pdf", done)
}

func TestRewriteDocumentIdempotent(t *testing.T) {
	cfg := model.RewriteConfig{
		MatchPattern:    "https://files.example.com",
		Mode:            model.ModeSigned,
		AccessKeyID:     "AKIA_TEST",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Bucket:          "my-bucket",
	}
	cs := &countingSigner{}
	eng := engine.New(cfg, func(model.RewriteConfig) (engine.Signer, error) { return cs, nil }, nil)

	first, count, err := Rewrite(context.Background(), strings.NewReader(fixture), eng)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, cs.calls)

	// 第二次处理：全部元素已带标记，零次新签名
	second, count, err := Rewrite(context.Background(), strings.NewReader(first), eng)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 3, cs.calls, "重复执行不应发起新的签名调用")
	assert.Equal(t, first, second)
}

func TestRewriteDocumentIncompleteConfig(t *testing.T) {
	cfg := model.DefaultRewriteConfig()
	cfg.MatchPattern = "https://files.example.com"
	// 缺少参数值
	eng := engine.New(cfg, nil, nil)

	_, _, err := Rewrite(context.Background(), strings.NewReader(fixture), eng)
	assert.ErrorIs(t, err, model.ErrConfigIncomplete)
}
