package chatserver

import (
	"net/http"

	"go.uber.org/zap"

	"im-messenger/internal/config"
	"im-messenger/internal/logging"
	"im-messenger/internal/middleware"
	ws "im-messenger/internal/websocket"
)

// WebSocketHandler 负责处理 WebSocket 连接请求。
type WebSocketHandler struct {
	hub      *ws.Hub
	commands ws.CommandHandler
	cfg      config.WebSocketConfig
	log      *zap.Logger
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。
func NewWebSocketHandler(hub *ws.Hub, commands ws.CommandHandler, cfg config.WebSocketConfig, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		commands: commands,
		cfg:      cfg,
		log:      logging.OrNop(log),
	}
}

// ServeWS 将 HTTP 连接升级为 WebSocket 连接，并为该连接创建一个新的客户端。
// 路由需要挂在 Guard 之后，浏览器可以通过 ?token= 查询参数携带令牌。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		h.log.Debug("websocket connect", zap.String("userId", userID))
	}
	ws.ServeWs(h.hub, h.commands, w, r, h.cfg, h.log)
}
