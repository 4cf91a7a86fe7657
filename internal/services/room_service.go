package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"im-messenger/internal/logging"
	"im-messenger/internal/models"
	"im-messenger/internal/storage"
)

// RoomService 定义了频道相关服务的接口。
type RoomService interface {
	Load(ctx context.Context) error
	Loaded() bool
	// SearchRooms 按名称和描述做不区分大小写的子串搜索，保持插入顺序
	SearchRooms(query string) []models.ChatRoom
	Get(id string) (models.ChatRoom, bool)
	// ApplyCounts 用 feed 下发的权威值替换成员数与在线数
	ApplyCounts(id string, members, online int) (models.ChatRoom, error)
}

type roomService struct {
	store *Store
	repo  storage.RoomRepository
	log   *zap.Logger
}

// NewRoomService 创建一个新的 RoomService 实例。
func NewRoomService(store *Store, repo storage.RoomRepository, log *zap.Logger) RoomService {
	return &roomService{store: store, repo: repo, log: logging.OrNop(log)}
}

func (s *roomService) Load(ctx context.Context) error {
	list, err := s.repo.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("加载频道失败: %w", err)
	}
	valid := make([]models.ChatRoom, 0, len(list))
	for _, r := range list {
		if err := r.Validate(); err != nil {
			s.log.Warn("skip invalid room", zap.String("roomId", r.ID), zap.Error(err))
			continue
		}
		valid = append(valid, r)
	}
	s.store.replaceRooms(valid)
	s.log.Info("rooms loaded", zap.Int("count", len(valid)))
	return nil
}

func (s *roomService) Loaded() bool {
	_, loaded := s.store.roomSnapshot()
	return loaded
}

func (s *roomService) SearchRooms(query string) []models.ChatRoom {
	all, _ := s.store.roomSnapshot()
	out := make([]models.ChatRoom, 0, len(all))
	for _, r := range all {
		if r.Matches(query) {
			out = append(out, r)
		}
	}
	return out
}

func (s *roomService) Get(id string) (models.ChatRoom, bool) {
	return s.store.room(id)
}

func (s *roomService) ApplyCounts(id string, members, online int) (models.ChatRoom, error) {
	return s.store.updateRoom(id, func(r models.ChatRoom) (models.ChatRoom, error) {
		r.MemberCount, r.OnlineCount = members, online
		if err := r.Validate(); err != nil {
			return r, err
		}
		return r, nil
	})
}
