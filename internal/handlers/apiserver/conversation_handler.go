package apiserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

// ConversationHandler 封装了会话相关的 HTTP 处理器方法。
type ConversationHandler struct {
	conversations services.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversations services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// ConversationListResponse 是会话列表接口的响应。Loaded 为 false 表示快照尚未加载。
type ConversationListResponse struct {
	Loaded      bool                  `json:"loaded"`
	Filter      string                `json:"filter"`
	Pinned      []models.Conversation `json:"pinned"`
	Regular     []models.Conversation `json:"regular"`
	TotalUnread int                   `json:"totalUnread"`
}

// ListConversationsHandler 按 filter 和 q 查询参数返回过滤后的会话列表。
func (h *ConversationHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseConversationFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	list := h.conversations.List(filter, r.URL.Query().Get("q"))
	writeJSONResponse(w, http.StatusOK, ConversationListResponse{
		Loaded:      h.conversations.Loaded(),
		Filter:      string(filter),
		Pinned:      list.Pinned,
		Regular:     list.Regular,
		TotalUnread: h.conversations.TotalUnread(),
	})
}

// GetConversationHandler 返回单个会话，附带展示名与在线人数。
func (h *ConversationHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["conversationID"]
	c, ok := h.conversations.Get(id)
	if !ok {
		writeJSONError(w, "会话不存在", http.StatusNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"conversation": c,
		"displayName":  c.DisplayName(),
		"isOnline":     c.IsOnline(),
		"onlineCount":  c.OnlineCount(),
	})
}

// UnreadHandler 返回未读总数，指定 conversationID 时返回该会话的未读数。
func (h *ConversationHandler) UnreadHandler(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("conversationId"); id != "" {
		n, ok := h.conversations.UnreadCount(id)
		if !ok {
			writeJSONError(w, "会话不存在", http.StatusNotFound)
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]int{"unread": n})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]int{"unread": h.conversations.TotalUnread()})
}

// UpdateSettingsRequest 是修改会话设置的请求，未提供的字段保持不变。
type UpdateSettingsRequest struct {
	Pinned   *bool `json:"pinned"`
	Muted    *bool `json:"muted"`
	Archived *bool `json:"archived"`
}

// UpdateSettingsHandler 修改会话的置顶、静音和归档状态。
func (h *ConversationHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["conversationID"]
	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, ok := h.conversations.Get(id)
	if !ok {
		writeJSONError(w, "会话不存在", http.StatusNotFound)
		return
	}
	var err error
	if req.Pinned != nil {
		if c, err = h.conversations.SetPinned(id, *req.Pinned); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Muted != nil {
		if c, err = h.conversations.SetMuted(id, *req.Muted); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Archived != nil {
		if c, err = h.conversations.SetArchived(id, *req.Archived); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, c)
}

// MarkReadHandler 将会话未读数清零。
func (h *ConversationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversations.MarkRead(mux.Vars(r)["conversationID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, c)
}
