package apiserver

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"im-messenger/internal/config"
	"im-messenger/internal/services"
)

// Services 汇总路由所需的服务。
type Services struct {
	Conversations services.ConversationService
	Rooms         services.RoomService
	Messages      services.MessageService
	Composer      services.ComposerService
	Typing        services.TypingService
}

// Middleware 是包装 http.Handler 的中间件。
type Middleware func(http.Handler) http.Handler

// RegisterRoutes 在 r 上注册 /api/v1 下的全部路由，auth 为 nil 时不做鉴权。
func RegisterRoutes(r *mux.Router, svc Services, auth Middleware) {
	conversationHandler := NewConversationHandler(svc.Conversations)
	roomHandler := NewRoomHandler(svc.Rooms)
	messageHandler := NewMessageHandler(svc.Messages, svc.Typing)
	composerHandler := NewComposerHandler(svc.Composer)

	api := r.PathPrefix("/api/v1").Subrouter()
	if auth != nil {
		api.Use(mux.MiddlewareFunc(auth))
	}

	// 会话
	api.HandleFunc("/conversations", conversationHandler.ListConversationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/unread", conversationHandler.UnreadHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{conversationID}", conversationHandler.GetConversationHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{conversationID}", conversationHandler.UpdateSettingsHandler).Methods(http.MethodPatch)
	api.HandleFunc("/conversations/{conversationID}/read", conversationHandler.MarkReadHandler).Methods(http.MethodPost)

	// 频道
	api.HandleFunc("/rooms", roomHandler.SearchRoomsHandler).Methods(http.MethodGet)

	// 消息时间线与输入状态
	api.HandleFunc("/targets/{targetID}/messages", messageHandler.GetMessagesHandler).Methods(http.MethodGet)
	api.HandleFunc("/targets/{targetID}/typing", messageHandler.GetTypingHandler).Methods(http.MethodGet)
	api.HandleFunc("/messages/{messageID}/reactions", messageHandler.ToggleReactionHandler).Methods(http.MethodPost)

	// 草稿与发送
	api.HandleFunc("/targets/{targetID}/draft", composerHandler.GetDraftHandler).Methods(http.MethodGet)
	api.HandleFunc("/targets/{targetID}/draft", composerHandler.UpdateDraftHandler).Methods(http.MethodPut)
	api.HandleFunc("/targets/{targetID}/draft", composerHandler.DiscardDraftHandler).Methods(http.MethodDelete)
	api.HandleFunc("/targets/{targetID}/draft/attachments", composerHandler.AddAttachmentHandler).Methods(http.MethodPost)
	api.HandleFunc("/targets/{targetID}/draft/reply", composerHandler.QuoteMessageHandler).Methods(http.MethodPut)
	api.HandleFunc("/targets/{targetID}/draft/reply", composerHandler.ClearReplyHandler).Methods(http.MethodDelete)
	api.HandleFunc("/targets/{targetID}/draft/submit", composerHandler.SubmitDraftHandler).Methods(http.MethodPost)
	api.HandleFunc("/messages/{messageID}/retry", composerHandler.RetryHandler).Methods(http.MethodPost)
	api.HandleFunc("/messages/{messageID}", composerHandler.CancelSendHandler).Methods(http.MethodDelete)
}

// WithCORS 按配置为 h 包装 CORS 处理。
func WithCORS(h http.Handler, cfg config.CORSConfig) http.Handler {
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods(cfg.AllowedMethods),
		handlers.AllowedHeaders(cfg.AllowedHeaders),
		handlers.ExposedHeaders(cfg.ExposedHeaders),
		handlers.MaxAge(cfg.MaxAge),
	}
	if cfg.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	return handlers.CORS(corsOptions...)(h)
}
