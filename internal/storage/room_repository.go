package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"im-messenger/internal/models"
)

// RoomRepository 定义了频道快照的读取接口。
type RoomRepository interface {
	ListRooms(ctx context.Context) ([]models.ChatRoom, error)
	SaveRoom(ctx context.Context, room models.ChatRoom) error
}

type gormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository 创建一个新的基于 GORM 的 RoomRepository。
func NewGormRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

// ListRooms 按名称顺序返回所有频道。
func (r *gormRoomRepository) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	var records []RoomRecord
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询频道失败: %w", err)
	}
	rooms := make([]models.ChatRoom, 0, len(records))
	for _, rec := range records {
		rooms = append(rooms, rec.ToDomain())
	}
	return rooms, nil
}

func (r *gormRoomRepository) SaveRoom(ctx context.Context, room models.ChatRoom) error {
	rec := RoomRecord{
		BaseModel:   BaseModel{ID: room.ID},
		Name:        room.Name,
		Description: room.Description,
		IsPrivate:   room.IsPrivate,
		MemberCount: room.MemberCount,
		OnlineCount: room.OnlineCount,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("保存频道 %s 失败: %w", room.ID, err)
	}
	return nil
}
