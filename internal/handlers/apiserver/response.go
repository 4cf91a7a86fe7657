package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

// ErrorResponse 是错误响应的 JSON 结构。
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError 将服务层错误映射为 HTTP 状态码。
func writeServiceError(w http.ResponseWriter, err error) {
	writeJSONError(w, err.Error(), statusForError(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownTarget), errors.Is(err, services.ErrStaleReference):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotRetryable), errors.Is(err, services.ErrNotCancellable),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrEmptyDraft):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidReactionState), errors.Is(err, models.ErrUnknownContentKind),
		errors.Is(err, models.ErrUnknownFilter), errors.Is(err, models.ErrUnknownStatus),
		errors.Is(err, models.ErrInvalidConversation), errors.Is(err, models.ErrInvalidRoom),
		errors.Is(err, models.ErrInvalidHandle), errors.Is(err, services.ErrInvalidEvent),
		errors.Is(err, services.ErrInvalidAttachment):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON 解码请求体，失败时写入 400 并返回 false。
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return false
	}
	return true
}
