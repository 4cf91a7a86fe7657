package apiserver

import (
	"net/http"

	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

// RoomHandler 封装了频道相关的 HTTP 处理器方法。
type RoomHandler struct {
	rooms services.RoomService
}

// NewRoomHandler 创建一个新的 RoomHandler 实例。
func NewRoomHandler(rooms services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type roomView struct {
	models.ChatRoom
	Address string `json:"address"`
}

// SearchRoomsHandler 按 q 参数搜索频道。
func (h *RoomHandler) SearchRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.SearchRooms(r.URL.Query().Get("q"))
	out := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomView{ChatRoom: room, Address: room.Address()})
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"loaded": h.rooms.Loaded(),
		"rooms":  out,
	})
}
