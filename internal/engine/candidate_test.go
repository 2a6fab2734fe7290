package engine

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink/pkg/model"
)

func TestCandidateURLShapes(t *testing.T) {
	raw := "https://files.example.com/cat.png"

	got, ok := CandidateURL(raw)
	assert.True(t, ok)
	assert.Equal(t, raw, got)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	got, ok = CandidateURL(u)
	assert.True(t, ok)
	assert.Equal(t, raw, got)

	req := &model.RequestInfo{URL: raw, Method: "GET"}
	got, ok = CandidateURL(req)
	assert.True(t, ok)
	assert.Equal(t, raw, got)

	_, ok = CandidateURL(42)
	assert.False(t, ok)
}

func TestWithSecuredURLKeepsShape(t *testing.T) {
	secured := "https://files.example.com/cat.png?token=abc123"

	out, err := WithSecuredURL("https://files.example.com/cat.png", secured)
	require.NoError(t, err)
	assert.Equal(t, secured, out)

	u, _ := url.Parse("https://files.example.com/cat.png")
	out, err = WithSecuredURL(u, secured)
	require.NoError(t, err)
	outURL, ok := out.(*url.URL)
	require.True(t, ok)
	assert.Equal(t, secured, outURL.String())

	req := &model.RequestInfo{URL: "https://files.example.com/cat.png", Method: "GET"}
	out, err = WithSecuredURL(req, secured)
	require.NoError(t, err)
	outReq, ok := out.(*model.RequestInfo)
	require.True(t, ok)
	assert.Equal(t, secured, outReq.URL)
	// 原始描述不被修改
	assert.Equal(t, "https://files.example.com/cat.png", req.URL)
	assert.Equal(t, "GET", outReq.Method)
}

func TestRewriteCandidateShapes(t *testing.T) {
	e := New(paramConfig(), nil, nil)

	out, err := e.RewriteCandidate(context.Background(), "https://files.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/a.png?token=abc123", out)

	u, err := url.Parse("https://files.example.com/b.png")
	require.NoError(t, err)
	out, err = e.RewriteCandidate(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "abc123", out.(*url.URL).Query().Get("token"))

	req := &model.RequestInfo{URL: "https://files.example.com/c.png", Method: "GET"}
	out, err = e.RewriteCandidate(context.Background(), req)
	require.NoError(t, err)
	outReq := out.(*model.RequestInfo)
	assert.Equal(t, "https://files.example.com/c.png?token=abc123", outReq.URL)
	assert.Equal(t, "GET", outReq.Method)
	assert.Equal(t, "https://files.example.com/c.png", req.URL, "原载体不被修改")

	_, err = e.RewriteCandidate(context.Background(), 42)
	assert.Error(t, err)
}

func TestRewriteCandidateFailureKeepsCandidate(t *testing.T) {
	cfg := model.DefaultRewriteConfig()
	cfg.MatchPattern = "https://files.example.com"
	// parameter 模式缺少参数值
	e := New(cfg, nil, nil)

	req := &model.RequestInfo{URL: "https://files.example.com/a.png"}
	out, err := e.RewriteCandidate(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrConfigIncomplete)
	assert.Same(t, req, out, "失败时原样返回载体")
}
