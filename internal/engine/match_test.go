package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  HTTPS://Files.Example.com/  ":      "https://files.example.com",
		"https://files.example.com/a/":        "https://files.example.com/a",
		"https://files.example.com":           "https://files.example.com",
		"https://":                            "https://",
		"http://a//":                          "http://a",
		"":                                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "输入 %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://files.example.com/private/cat.png",
		"  HTTPS://FILES.example.COM///  ",
		"http://a/",
		"data:image/png;base64,AAAA",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "输入 %q", in)
	}
}

func TestInScopeEmptyPattern(t *testing.T) {
	assert.False(t, InScope("https://files.example.com/cat.png", ""))
	assert.False(t, InScope("https://files.example.com/cat.png", "   "))
}

func TestInScopeRejectsNonHTTP(t *testing.T) {
	pattern := "https://files.example.com"
	for _, u := range []string{
		"data:image/png;base64,AAAA",
		"app://local/file.png",
		"//files.example.com/cat.png",
		"ftp://files.example.com/cat.png",
		"not a url",
		"",
	} {
		assert.False(t, InScope(u, pattern), "候选 %q", u)
	}
}

func TestInScopeCaseAndTrailingSlash(t *testing.T) {
	// 大小写不敏感 + 尾斜杠归一化
	assert.True(t, InScope("https://FILES.example.com/private/cat.png", "https://files.example.com/"))
	assert.True(t, InScope("https://files.example.com/private/cat.png", "https://files.example.com"))
	assert.False(t, InScope("https://other.example.com/cat.png", "https://files.example.com"))
}

func TestInScopePrefixProperty(t *testing.T) {
	pairs := [][2]string{
		{"https://files.example.com/a/b.png", "https://files.example.com"},
		{"HTTP://files.example.com/x", "http://files.example.com/"},
		{"https://files.example.com", "https://files.example.com/"},
	}
	for _, p := range pairs {
		if InScope(p[0], p[1]) {
			assert.True(t, strings.HasPrefix(Normalize(p[0]), Normalize(p[1])))
		}
	}
}
