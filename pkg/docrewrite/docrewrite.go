// Package docrewrite 对导出的静态 HTML 文档执行与实时 DOM 扫描
// 相同的链接安全化处理，共用同一套引擎与元素/属性约定。
package docrewrite

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"securelink/internal/engine"
)

// Rewrite 扫描 HTML 文档并重写全部范围内的链接/媒体地址，
// 返回重写后的文档与新处理的元素数量。
// 已带处理标记的元素原样跳过，对同一文档重复执行是空操作。
func Rewrite(ctx context.Context, r io.Reader, eng *engine.Engine) (string, int, error) {
	if err := eng.Config().Validate(); err != nil {
		return "", 0, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", 0, fmt.Errorf("解析 HTML 失败: %w", err)
	}

	count := 0
	doc.Find(engine.ScanSelector).Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr(engine.ProcessedAttr); ok && v == engine.ProcessedValue {
			return
		}
		for _, name := range engine.URLAttrPriority {
			raw, ok := sel.Attr(name)
			if !ok || raw == "" || !eng.InScope(raw) {
				continue
			}
			secured, err := eng.RewriteOrOriginal(ctx, raw)
			if err != nil {
				// 重写失败不打标记，保留原始属性
				return
			}
			sel.SetAttr(name, secured)
			sel.SetAttr(engine.ProcessedAttr, engine.ProcessedValue)
			count++
			return
		}
	})

	html, err := doc.Html()
	if err != nil {
		return "", count, fmt.Errorf("序列化 HTML 失败: %w", err)
	}
	return html, count, nil
}
