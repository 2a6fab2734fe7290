package cdp

import (
	"context"
	"fmt"

	"github.com/mafredri/cdp/protocol/dom"

	"securelink/internal/engine"
	"securelink/pkg/model"
)

// SecureAll 按需扫描当前渲染视图，重写全部范围内的链接/媒体地址。
// 已带处理标记的元素原样跳过，重复执行是空操作。
func (m *Manager) SecureAll(ctx context.Context) (int, error) {
	if m.client == nil {
		return 0, fmt.Errorf("尚未附加目标")
	}
	doc, err := m.client.DOM.GetDocument(ctx, nil)
	if err != nil {
		return 0, err
	}
	count, err := m.scanContainer(ctx, doc.Root.NodeID, model.SourceScan)
	if err != nil {
		return count, err
	}
	m.sendEvent(model.Event{Type: model.EventScanned, Target: m.targetID, Source: model.SourceScan, Count: count})
	m.log.Info("文档扫描完成", "target", string(m.targetID), "secured", count)
	return count, nil
}

// scanContainer 扫描容器节点下所有候选元素，返回新处理的数量
func (m *Manager) scanContainer(ctx context.Context, root dom.NodeID, source string) (int, error) {
	res, err := m.client.DOM.QuerySelectorAll(ctx, dom.NewQuerySelectorAllArgs(root, engine.ScanSelector))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range res.NodeIDs {
		ok, err := m.secureElement(ctx, id, source)
		if err != nil {
			m.log.Warn("处理元素失败", "nodeID", int(id), "error", err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// secureElement 对单个元素执行 匹配 → 重写 → 替换属性 → 打标记 序列。
// 属性按固定优先级尝试，首个在范围内的属性胜出；
// 标记在替换后立即写入，保证该元素至多被处理一次。
func (m *Manager) secureElement(ctx context.Context, id dom.NodeID, source string) (bool, error) {
	reply, err := m.client.DOM.GetAttributes(ctx, dom.NewGetAttributesArgs(id))
	if err != nil {
		return false, err
	}
	attrs := attrMap(reply.Attributes)
	if attrs[engine.ProcessedAttr] == engine.ProcessedValue {
		return false, nil
	}

	for _, name := range engine.URLAttrPriority {
		raw, ok := attrs[name]
		if !ok || raw == "" || !m.engine.InScope(raw) {
			continue
		}
		m.sendEvent(model.Event{Type: model.EventIntercepted, Target: m.targetID, Source: source, URL: raw})

		secured, err := m.engine.RewriteOrOriginal(ctx, raw)
		if err != nil {
			// 不打标记，元素保持原样，后续扫描可重试
			m.sendEvent(model.Event{Type: model.EventDegraded, Target: m.targetID, Source: source, URL: raw, Error: err.Error()})
			return false, nil
		}
		if err := m.client.DOM.SetAttributeValue(ctx, dom.NewSetAttributeValueArgs(id, name, secured)); err != nil {
			return false, err
		}
		if err := m.client.DOM.SetAttributeValue(ctx, dom.NewSetAttributeValueArgs(id, engine.ProcessedAttr, engine.ProcessedValue)); err != nil {
			return false, err
		}
		m.sendEvent(model.Event{Type: model.EventRewritten, Target: m.targetID, Source: source, URL: raw, SecuredURL: secured})
		return true, nil
	}
	return false, nil
}

// consumeDOMInserted 持续观察文档变更，对新插入的子树应用与扫描相同的处理
func (m *Manager) consumeDOMInserted(ci dom.ChildNodeInsertedClient) {
	for {
		ev, err := ci.Recv()
		if err != nil {
			if m.enabled.Load() {
				m.log.Err(err, "DOM 变更事件流中断", "target", string(m.targetID))
			}
			return
		}
		go m.handleInserted(ev)
	}
}

// handleInserted 处理新插入节点：节点自身与其范围内后代各处理一次
func (m *Manager) handleInserted(ev *dom.ChildNodeInsertedReply) {
	if !m.enabled.Load() {
		return
	}
	ctx, cancel := m.opCtx()
	defer cancel()

	// 非元素节点没有属性，GetAttributes 报错时直接跳过自身
	if _, err := m.secureElement(ctx, ev.Node.NodeID, model.SourceObserver); err != nil {
		m.log.Debug("插入节点自身跳过", "nodeID", int(ev.Node.NodeID), "error", err)
	}
	if _, err := m.scanContainer(ctx, ev.Node.NodeID, model.SourceObserver); err != nil {
		m.log.Debug("插入子树扫描失败", "nodeID", int(ev.Node.NodeID), "error", err)
	}
}

// attrMap 将 DOM 返回的扁平 [name, value, ...] 列表转换为映射
func attrMap(flat []string) map[string]string {
	out := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out[flat[i]] = flat[i+1]
	}
	return out
}
