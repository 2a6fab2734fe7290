package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"securelink/pkg/model"
)

// ErrSignerUnavailable 签名客户端未就绪（凭证无效或构建失败）
var ErrSignerUnavailable = errors.New("签名客户端不可用")

// defaultExpiry 预签名 URL 默认有效期
const defaultExpiry = 3600 * time.Second

// RewriteOrOriginal 为范围内的候选 URL 生成安全 URL。
// 任何内部失败都回退为原始 URL，返回的字符串始终可用；
// error 仅用于上报与计数，绝不向宿主的请求/渲染链路抛出。
func (e *Engine) RewriteOrOriginal(ctx context.Context, raw string) (string, error) {
	snap := e.snap.Load()
	secured, err := rewrite(ctx, snap, raw)
	if err != nil {
		e.failed.Add(1)
		e.log.Warn("重写失败，回退原始 URL", "url", raw, "error", err)
		return raw, err
	}
	e.rewritten.Add(1)
	return secured, nil
}

func rewrite(ctx context.Context, snap *snapshot, raw string) (string, error) {
	cfg := snap.cfg
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	switch cfg.Mode {
	case model.ModeParameter:
		return setParam(raw, cfg.ParamKey, cfg.ParamValue)
	case model.ModeSigned:
		key, err := deriveObjectKey(raw, cfg.Bucket)
		if err != nil {
			return "", err
		}
		if snap.signer == nil {
			return "", ErrSignerUnavailable
		}
		expiry := defaultExpiry
		if cfg.ExpirySeconds > 0 {
			expiry = time.Duration(cfg.ExpirySeconds) * time.Second
		}
		return snap.signer.Presign(ctx, key, expiry)
	}
	return "", model.ErrConfigIncomplete
}

// setParam 设置（已存在则覆盖）鉴权查询参数并重新序列化
func setParam(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("解析 URL 失败: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deriveObjectKey 从候选 URL 的路径推导对象键：
// 剥除一个前导斜杠；若剩余路径以 "<bucket>/" 开头（路径式寻址），连同剥除。
func deriveObjectKey(raw, bucket string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("解析 URL 失败: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	if key == "" {
		return "", fmt.Errorf("URL 路径为空，无法推导对象键: %s", raw)
	}
	return key, nil
}
