package service

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink/internal/config"
	"securelink/internal/logger"
	"securelink/pkg/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Sqlite.Dsn = filepath.Join(t.TempDir(), "svc.sqlite3")
	svc, err := New(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestUpdateRewriteConfigSavesVerbatim(t *testing.T) {
	svc := newTestService(t)

	// 只设置匹配模式也能保存，完整性在重写时裁决
	rc := model.DefaultRewriteConfig()
	rc.MatchPattern = "https://files.example.com"
	require.NoError(t, svc.UpdateRewriteConfig(rc))

	out, err := svc.RewriteConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com", out.MatchPattern)
	assert.Empty(t, out.ParamValue)
}

func TestStartSessionRemembersDevToolsURL(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.StartSession(model.SessionConfig{DevToolsURL: "http://127.0.0.1:9333"})
	require.NoError(t, err)
	require.NoError(t, svc.StopSession(id))

	// 未指定端点时复用上次使用的端点
	id2, err := svc.StartSession(model.SessionConfig{})
	require.NoError(t, err)
	sess, ok := svc.sessions.Get(id2)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:9333", sess.Config.DevToolsURL)
}

func TestStartSessionFallsBackToAppConfig(t *testing.T) {
	svc := newTestService(t)

	id, err := svc.StartSession(model.SessionConfig{})
	require.NoError(t, err)
	sess, ok := svc.sessions.Get(id)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:9222", sess.Config.DevToolsURL)
}
