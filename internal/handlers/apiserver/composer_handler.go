package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"im-messenger/internal/services"
)

// ComposerHandler 封装了草稿编辑与发送相关的 HTTP 处理器方法。
type ComposerHandler struct {
	composer services.ComposerService
}

// NewComposerHandler 创建一个新的 ComposerHandler 实例。
func NewComposerHandler(composer services.ComposerService) *ComposerHandler {
	return &ComposerHandler{composer: composer}
}

// UpdateDraftRequest 是修改草稿文字的请求体。
type UpdateDraftRequest struct {
	Text string `json:"text"`
}

// QuoteRequest 是引用消息的请求体。
type QuoteRequest struct {
	MessageID string `json:"messageId"`
}

// GetDraftHandler 返回目标的当前草稿。
func (h *ComposerHandler) GetDraftHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.composer.Draft(mux.Vars(r)["targetID"]))
}

// UpdateDraftHandler 替换草稿文字。
func (h *ComposerHandler) UpdateDraftHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateDraftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.composer.UpdateDraft(mux.Vars(r)["targetID"], req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, d)
}

// AddAttachmentHandler 向草稿追加一个附件。
func (h *ComposerHandler) AddAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	var req services.Attachment
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.composer.AddAttachment(mux.Vars(r)["targetID"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, d)
}

// QuoteMessageHandler 将已加载的消息设为草稿的引用。
func (h *ComposerHandler) QuoteMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, ok := h.composer.QuoteMessage(mux.Vars(r)["targetID"], req.MessageID)
	if !ok {
		writeJSONError(w, "无法引用该消息", http.StatusNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, d)
}

// ClearReplyHandler 移除草稿的引用。
func (h *ComposerHandler) ClearReplyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.composer.ClearReply(mux.Vars(r)["targetID"]))
}

// DiscardDraftHandler 丢弃目标的整个草稿。
func (h *ComposerHandler) DiscardDraftHandler(w http.ResponseWriter, r *http.Request) {
	h.composer.DiscardDraft(mux.Vars(r)["targetID"])
	w.WriteHeader(http.StatusNoContent)
}

// SubmitDraftHandler 发送草稿，返回本地创建的消息。
func (h *ComposerHandler) SubmitDraftHandler(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.composer.SubmitDraft(r.Context(), mux.Vars(r)["targetID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, msgs)
}

// RetryHandler 重发一条 failed 状态的消息。
func (h *ComposerHandler) RetryHandler(w http.ResponseWriter, r *http.Request) {
	m, err := h.composer.Retry(r.Context(), mux.Vars(r)["messageID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, m)
}

// CancelSendHandler 撤回一条仍在发送中的消息。
func (h *ComposerHandler) CancelSendHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.composer.CancelSend(mux.Vars(r)["messageID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
