package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"im-messenger/internal/auth"
	"im-messenger/internal/logging"
)

// contextKey 是用于在 context.Context 中存储值的自定义类型，以避免键冲突。
type contextKey string

// UserIDKey 是用于在上下文中存储用户ID的键。
const UserIDKey contextKey = "userID"

// Guard 校验请求携带的身份令牌，只允许本地用户访问。
type Guard struct {
	secret      string
	localUserID string
	log         *zap.Logger
}

// NewGuard 创建一个 Guard。
func NewGuard(secret, localUserID string, log *zap.Logger) *Guard {
	return &Guard{secret: secret, localUserID: localUserID, log: logging.OrNop(log)}
}

// AuthMiddleware 是一个 HTTP 中间件，用于验证令牌并将用户 ID 添加到上下文中。
// 令牌来自 Authorization: Bearer 头；WebSocket 握手时也可以使用 token 查询参数。
func (g *Guard) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeJSONError(w, "请求未包含授权令牌", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateToken(tokenString, g.secret)
		if err != nil {
			g.log.Debug("reject request with invalid token", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSONError(w, "令牌无效", http.StatusUnauthorized)
			return
		}
		if claims.UserID != g.localUserID {
			g.log.Warn("reject token for foreign identity", zap.String("userId", claims.UserID))
			writeJSONError(w, "令牌不属于本地用户", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" || headerParts[1] == "" {
			return "", false
		}
		return headerParts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// GetUserIDFromContext 从上下文中获取用户ID。
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// RequestLogger 记录每个请求的方法、路径和脱敏后的请求头。
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	log = logging.OrNop(log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("incoming_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.String("headers", logging.SafeHeaders(r)),
			)
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
