package cdp

import (
	"context"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/target"

	"securelink/internal/engine"
	"securelink/pkg/model"
)

// consumeFetch 持续消费被暂停的出站请求
func (m *Manager) consumeFetch(rp fetch.RequestPausedClient) {
	for {
		ev, err := rp.Recv()
		if err != nil {
			if m.enabled.Load() {
				m.log.Err(err, "请求拦截流中断", "target", string(m.targetID))
			}
			return
		}
		go m.handlePaused(ev)
	}
}

// handlePaused 处理一次被暂停的请求。请求在重写完成前不会发出，
// 暂停本身就是同步调用点所需的延迟；超时则降级放行原始 URL。
func (m *Manager) handlePaused(ev *fetch.RequestPausedReply) {
	ctx, cancel := m.opCtx()
	defer cancel()

	req := &model.RequestInfo{
		URL:          ev.Request.URL,
		Method:       ev.Request.Method,
		ResourceType: string(ev.ResourceType),
	}
	raw, ok := engine.CandidateURL(req)
	if !ok || !m.engine.InScope(raw) {
		m.continueRequest(ctx, ev, nil)
		return
	}
	source := model.SourceRequest
	if ev.ResourceType == network.ResourceTypeDocument {
		source = model.SourceNavigation
	}
	m.sendEvent(model.Event{Type: model.EventIntercepted, Target: m.targetID, Source: source, URL: raw})

	out, err := m.engine.RewriteCandidate(ctx, req)
	if err != nil {
		m.degradeAndContinue(ctx, ev, source, err)
		return
	}
	secured := out.(*model.RequestInfo).URL
	m.continueRequest(ctx, ev, &secured)
	m.sendEvent(model.Event{Type: model.EventRewritten, Target: m.targetID, Source: source, URL: raw, SecuredURL: secured})
	m.log.Debug("请求已重写", "source", source, "url", raw)
}

// continueRequest 放行请求；securedURL 非 nil 时替换目标地址
func (m *Manager) continueRequest(ctx context.Context, ev *fetch.RequestPausedReply, securedURL *string) {
	args := &fetch.ContinueRequestArgs{RequestID: ev.RequestID, URL: securedURL}
	if err := m.client.Fetch.ContinueRequest(ctx, args); err != nil {
		m.log.Err(err, "放行请求失败", "requestID", string(ev.RequestID))
	}
}

// degradeAndContinue 统一降级处理：按原始 URL 放行
func (m *Manager) degradeAndContinue(ctx context.Context, ev *fetch.RequestPausedReply, source string, cause error) {
	m.log.Warn("执行降级策略：按原始 URL 放行", "source", source, "url", ev.Request.URL, "error", cause)
	m.continueRequest(ctx, ev, nil)
	m.sendEvent(model.Event{Type: model.EventDegraded, Target: m.targetID, Source: source, URL: ev.Request.URL, Error: cause.Error()})
}

// consumeWindowOpen 持续消费 window.open / 辅助手势触发的打开事件
func (m *Manager) consumeWindowOpen(wo page.WindowOpenClient) {
	for {
		ev, err := wo.Recv()
		if err != nil {
			if m.enabled.Load() {
				m.log.Err(err, "窗口打开事件流中断", "target", string(m.targetID))
			}
			return
		}
		go m.handleWindowOpen(ev)
	}
}

// handleWindowOpen 记录一次程序化/手势打开。实际的重写发生在新目标自己的
// 请求拦截里（见 handleAttached），这里只上报捕获事件，不额外开页。
func (m *Manager) handleWindowOpen(ev *page.WindowOpenReply) {
	if !m.engine.InScope(ev.URL) {
		return
	}
	m.sendEvent(model.Event{Type: model.EventIntercepted, Target: m.targetID, Source: model.SourceWindowOpen, URL: ev.URL})
}

// consumeAttached 消费自动附加的新目标（弹窗、中键/修饰键打开）
func (m *Manager) consumeAttached(at target.AttachedToTargetClient) {
	for {
		ev, err := at.Recv()
		if err != nil {
			if m.enabled.Load() {
				m.log.Err(err, "目标附加事件流中断", "target", string(m.targetID))
			}
			return
		}
		go m.handleAttached(ev)
	}
}

// handleAttached 为新开目标装配与当前目标相同的拦截，再放行其首个请求。
// 新目标在装配完成前保持挂起，原始导航不会绕过拦截进入网络层。
func (m *Manager) handleAttached(ev *target.AttachedToTargetReply) {
	if ev.TargetInfo.Type != "page" {
		m.resumeTarget(ev)
		return
	}
	conn, err := m.sess.Dial(m.ctx, ev.TargetInfo.TargetID)
	if err != nil {
		m.log.Err(err, "连接新目标失败", "target", string(ev.TargetInfo.TargetID))
		m.resumeTarget(ev)
		return
	}
	child := m.newChild(conn, model.TargetID(ev.TargetInfo.TargetID))
	if err := child.Enable(); err != nil {
		m.log.Err(err, "新目标启用拦截失败", "target", string(child.targetID))
		_ = child.Detach()
		m.resumeTarget(ev)
		return
	}
	m.addChild(child)
	if ev.WaitingForDebugger {
		if err := child.client.Runtime.RunIfWaitingForDebugger(child.ctx); err != nil {
			m.log.Err(err, "放行新目标失败", "target", string(child.targetID))
		}
	}
	m.log.Info("新目标已纳入拦截", "target", string(child.targetID), "url", ev.TargetInfo.URL)
}

// resumeTarget 放行一个无法（或无需）装配拦截的挂起目标
func (m *Manager) resumeTarget(ev *target.AttachedToTargetReply) {
	if !ev.WaitingForDebugger {
		return
	}
	conn, err := m.sess.Dial(m.ctx, ev.TargetInfo.TargetID)
	if err != nil {
		m.log.Err(err, "放行挂起目标失败", "target", string(ev.TargetInfo.TargetID))
		return
	}
	defer conn.Close()
	if err := cdp.NewClient(conn).Runtime.RunIfWaitingForDebugger(m.ctx); err != nil {
		m.log.Err(err, "放行挂起目标失败", "target", string(ev.TargetInfo.TargetID))
	}
}
