package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink/internal/logger"
	"securelink/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.sqlite3")
	s, err := Open(dsn, "securelink_", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadRewriteConfigDefaults(t *testing.T) {
	s := openTestStore(t)

	cfg, err := s.LoadRewriteConfig()
	require.NoError(t, err)
	assert.Equal(t, model.ModeParameter, cfg.Mode)
	assert.Equal(t, "key", cfg.ParamKey)
	assert.Equal(t, 3600, cfg.ExpirySeconds)
	assert.Empty(t, cfg.MatchPattern)
}

func TestSaveAndLoadRewriteConfig(t *testing.T) {
	s := openTestStore(t)

	in := model.RewriteConfig{
		MatchPattern:    "https://files.example.com",
		Mode:            model.ModeSigned,
		ParamKey:        "token",
		ParamValue:      "abc123",
		AccessKeyID:     "AKIA_TEST",
		SecretAccessKey: "secret",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		Bucket:          "my-bucket",
		ExpirySeconds:   600,
	}
	require.NoError(t, s.SaveRewriteConfig(in))

	out, err := s.LoadRewriteConfig()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// 二次保存覆盖同一条记录
	in.ParamValue = "v2"
	require.NoError(t, s.SaveRewriteConfig(in))
	out, err = s.LoadRewriteConfig()
	require.NoError(t, err)
	assert.Equal(t, "v2", out.ParamValue)
}

func TestLoadRewriteConfigMergesOverDefaults(t *testing.T) {
	s := openTestStore(t)

	// 只保存了部分字段的历史文档，缺失字段保持默认值
	rec := Setting{Key: SettingKeyRewriteConfig, Value: `{"matchPattern":"https://files.example.com"}`}
	require.NoError(t, s.db.Create(&rec).Error)

	cfg, err := s.LoadRewriteConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com", cfg.MatchPattern)
	assert.Equal(t, "key", cfg.ParamKey)
	assert.Equal(t, model.ModeParameter, cfg.Mode)
	assert.Equal(t, 3600, cfg.ExpirySeconds)
}

func TestSaveAndLoadDevToolsURL(t *testing.T) {
	s := openTestStore(t)

	url, err := s.LoadDevToolsURL()
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, s.SaveDevToolsURL("http://127.0.0.1:9333"))
	url, err = s.LoadDevToolsURL()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9333", url)

	// 覆盖保存同一条记录
	require.NoError(t, s.SaveDevToolsURL("http://127.0.0.1:9444"))
	url, err = s.LoadDevToolsURL()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9444", url)
}

func TestRecordAndListEvents(t *testing.T) {
	s := openTestStore(t)

	base := time.Now().UnixMilli()
	for i, typ := range []string{model.EventRewritten, model.EventDegraded, model.EventRewritten} {
		err := s.RecordEvent("sess-1", model.Event{
			Type:      typ,
			Target:    "t-1",
			Source:    model.SourceScan,
			URL:       "https://files.example.com/a.png",
			Timestamp: base + int64(i),
		})
		require.NoError(t, err)
	}

	out, err := s.RecentEvents(2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	// 按时间倒序
	assert.Equal(t, base+2, out[0].Timestamp)
	assert.Equal(t, base+1, out[1].Timestamp)
	assert.Equal(t, "sess-1", out[0].SessionID)
}
