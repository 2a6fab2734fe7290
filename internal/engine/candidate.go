package engine

import (
	"context"
	"fmt"
	"net/url"

	"securelink/pkg/model"
)

// 候选 URL 在拦截点可能以三种形态出现：纯字符串、结构化 *url.URL、
// 或完整的请求描述 *model.RequestInfo。匹配前统一提取为字符串，
// 重写后按原始形态还原。

// CandidateURL 从候选载体中提取 URL 字符串
func CandidateURL(candidate any) (string, bool) {
	switch c := candidate.(type) {
	case string:
		return c, true
	case *url.URL:
		if c == nil {
			return "", false
		}
		return c.String(), true
	case *model.RequestInfo:
		if c == nil {
			return "", false
		}
		return c.URL, true
	}
	return "", false
}

// WithSecuredURL 将安全 URL 写回候选载体的原始形态。
// 载体本身不被修改，返回替换后的副本。
func WithSecuredURL(candidate any, secured string) (any, error) {
	switch c := candidate.(type) {
	case string:
		return secured, nil
	case *url.URL:
		u, err := url.Parse(secured)
		if err != nil {
			return nil, fmt.Errorf("解析安全 URL 失败: %w", err)
		}
		return u, nil
	case *model.RequestInfo:
		out := *c
		out.URL = secured
		return &out, nil
	}
	return nil, fmt.Errorf("不支持的候选载体类型 %T", candidate)
}

// RewriteCandidate 重写任意形态的候选载体，按原始形态返回替换后的副本。
// 范围判定由调用方完成；重写失败时原样返回载体并上报错误，
// 与 RewriteOrOriginal 一致，返回值始终可用。
func (e *Engine) RewriteCandidate(ctx context.Context, candidate any) (any, error) {
	raw, ok := CandidateURL(candidate)
	if !ok {
		return candidate, fmt.Errorf("不支持的候选载体类型 %T", candidate)
	}
	secured, err := e.RewriteOrOriginal(ctx, raw)
	if err != nil {
		return candidate, err
	}
	return WithSecuredURL(candidate, secured)
}
