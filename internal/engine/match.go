package engine

import (
	"net/url"
	"strings"
)

// minTrimLen 归一化时保留的最小长度，避免把裸 scheme+host 剥成非法串
const minTrimLen = len("https://")

// Normalize 归一化 URL/模式：去首尾空白、转小写、剥除尾部斜杠。
// 结果是幂等的：Normalize(Normalize(s)) == Normalize(s)。
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for len(s) > minTrimLen && strings.HasSuffix(s, "/") {
		s = s[:len(s)-1]
	}
	return s
}

// InScope 判断候选 URL 是否落在匹配模式内。
// 仅接受格式良好的 http/https URL；data:、app:// 和协议相对地址一律视为范围外。
// 空模式永远不匹配，重写是显式开启的行为。
func InScope(candidate, pattern string) bool {
	p := Normalize(pattern)
	if p == "" {
		return false
	}
	c := Normalize(candidate)
	if !strings.HasPrefix(c, "http://") && !strings.HasPrefix(c, "https://") {
		return false
	}
	u, err := url.Parse(c)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.HasPrefix(c, p)
}
