package cdp

import (
	"testing"
	"time"

	"github.com/mafredri/cdp/protocol/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink/internal/engine"
	"securelink/pkg/model"
)

func testEngine() *engine.Engine {
	cfg := model.DefaultRewriteConfig()
	cfg.MatchPattern = "https://files.example.com"
	cfg.ParamKey = "token"
	cfg.ParamValue = "abc123"
	return engine.New(cfg, nil, nil)
}

func TestEnableRequiresAttach(t *testing.T) {
	m := New("http://127.0.0.1:9222", testEngine(), nil, nil, 0)
	assert.Error(t, m.Enable())
	assert.False(t, m.enabled.Load(), "失败后不应残留启用状态")
}

func TestEnableIsIdempotent(t *testing.T) {
	m := New("http://127.0.0.1:9222", testEngine(), nil, nil, 0)
	m.enabled.Store(true)

	// 已启用时直接返回，不会重复订阅事件流
	require.NoError(t, m.Enable())
	assert.Empty(t, m.streams)
}

func TestWindowOpenReportsWithoutExtraNavigation(t *testing.T) {
	events := make(chan model.Event, 4)
	m := New("http://127.0.0.1:9222", testEngine(), events, nil, 0)

	// client 为空，任何额外开页都会在此直接崩溃
	m.handleWindowOpen(&page.WindowOpenReply{URL: "https://files.example.com/private/cat.png"})

	select {
	case evt := <-events:
		assert.Equal(t, model.EventIntercepted, evt.Type)
		assert.Equal(t, model.SourceWindowOpen, evt.Source)
		assert.Equal(t, "https://files.example.com/private/cat.png", evt.URL)
	case <-time.After(time.Second):
		t.Fatal("未收到捕获事件")
	}

	// 范围外的打开不产生事件
	m.handleWindowOpen(&page.WindowOpenReply{URL: "https://public.example.com/open.html"})
	assert.Empty(t, events)
}

func TestSendEventNonBlocking(t *testing.T) {
	events := make(chan model.Event, 1)
	m := New("http://127.0.0.1:9222", testEngine(), events, nil, 0)

	m.sendEvent(model.Event{Type: model.EventIntercepted})
	m.sendEvent(model.Event{Type: model.EventIntercepted}) // 通道已满，必须直接丢弃
	assert.Len(t, events, 1)
}
