package engine

// 文档扫描的元素/属性约定，实时 DOM 扫描与离线 HTML 重写共用一份，
// 保证两条路径不会各自演化出不同的覆盖范围。

// ScanSelector 文档扫描覆盖的元素集合
const ScanSelector = "a[href], img[src], video[src], audio[src], source[src], iframe[src]"

// ProcessedAttr 已处理标记属性，置于元素上保证至多一次重写
const ProcessedAttr = "data-securelink-processed"

// ProcessedValue 标记属性的固定取值
const ProcessedValue = "1"

// URLAttrPriority 同一元素上多个携带 URL 的属性按此固定顺序尝试，
// 首个在范围内的属性胜出，避免依赖迭代顺序
var URLAttrPriority = []string{"href", "src", "poster", "data-src"}
