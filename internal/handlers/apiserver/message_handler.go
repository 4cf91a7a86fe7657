package apiserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"im-messenger/internal/services"
)

// MessageHandler 封装了消息时间线、表情回应和输入状态相关的 HTTP 处理器方法。
type MessageHandler struct {
	messages services.MessageService
	typing   services.TypingService
}

// NewMessageHandler 创建一个新的 MessageHandler 实例。
func NewMessageHandler(messages services.MessageService, typing services.TypingService) *MessageHandler {
	return &MessageHandler{messages: messages, typing: typing}
}

// GetMessagesHandler 返回目标当前已加载的消息时间线。
// 带上 reload=true 时先从仓储重新加载，limit 控制条数。
func (h *MessageHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	targetID := mux.Vars(r)["targetID"]
	query := r.URL.Query()

	if query.Get("reload") == "true" {
		limit := 0
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSONError(w, "limit 参数无效", http.StatusBadRequest)
				return
			}
			limit = n
		}
		msgs, err := h.messages.Load(r.Context(), targetID, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, msgs)
		return
	}
	writeJSONResponse(w, http.StatusOK, h.messages.Messages(targetID))
}

// ToggleReactionRequest 是切换表情回应的请求体。
type ToggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

// ToggleReactionHandler 切换本地用户对消息的某个表情回应。
func (h *MessageHandler) ToggleReactionHandler(w http.ResponseWriter, r *http.Request) {
	var req ToggleReactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.messages.ToggleReaction(mux.Vars(r)["messageID"], req.Emoji)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, m)
}

// GetTypingHandler 返回目标中正在输入的参与者。
func (h *MessageHandler) GetTypingHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.typing.Typing(r.Context(), mux.Vars(r)["targetID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, users)
}
