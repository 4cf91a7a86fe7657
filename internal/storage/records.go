package storage

import (
	"fmt"
	"time"

	"im-messenger/internal/models"
)

// BaseModel 定义了所有快照表的公共字段。
// ID 使用 feed 下发的字符串 ID，而不是自增主键。
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConversationRecord 是会话快照的数据库表示。
type ConversationRecord struct {
	BaseModel
	Type               string    `gorm:"type:varchar(20);not null;index"`
	Name               string    `gorm:"type:varchar(255)"`
	LastMessagePreview string    `gorm:"type:text"`
	LastMessageAt      time.Time `gorm:"index"`
	UnreadCount        int       `gorm:"default:0"`
	IsMuted            bool      `gorm:"default:false"`
	IsPinned           bool      `gorm:"default:false"`
	IsArchived         bool      `gorm:"default:false;index"`
	IsEncrypted        bool      `gorm:"default:false"`

	Participants []ParticipantRecord `gorm:"foreignKey:ConversationID"`
}

// TableName 指定 ConversationRecord 的表名。
func (ConversationRecord) TableName() string {
	return "conversations"
}

// ParticipantRecord 将参与者快照链接到会话。Position 保留参与者在会话中的顺序。
type ParticipantRecord struct {
	ID             uint   `gorm:"primarykey"`
	ConversationID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_conversation_user"`
	UserID         string `gorm:"type:varchar(64);not null;uniqueIndex:idx_conversation_user"`
	Position       int
	Handle         string `gorm:"type:varchar(100);not null"`
	DisplayName    string `gorm:"type:varchar(100)"`
	AvatarRef      string `gorm:"type:varchar(255)"`
	IsOnline       bool
	IsVerified     bool
	Role           string `gorm:"type:varchar(20)"`
	LastSeenAt     *time.Time
}

// TableName 指定 ParticipantRecord 的表名。
func (ParticipantRecord) TableName() string {
	return "conversation_participants"
}

// RoomRecord 是频道快照的数据库表示。
type RoomRecord struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	IsPrivate   bool   `gorm:"default:false"`
	MemberCount int    `gorm:"default:0"`
	OnlineCount int    `gorm:"default:0"`
}

// TableName 指定 RoomRecord 的表名。
func (RoomRecord) TableName() string {
	return "chat_rooms"
}

// MessageRecord 是消息快照的数据库表示，Content 以 kind 信封的 JSON 存储。
type MessageRecord struct {
	BaseModel
	TargetID          string    `gorm:"type:varchar(64);not null;index:idx_target_sent"`
	SenderID          string    `gorm:"type:varchar(64);index"`
	SenderDisplayName string    `gorm:"type:varchar(100)"`
	Content           []byte    `gorm:"type:jsonb;not null"`
	SentAt            time.Time `gorm:"not null;index:idx_target_sent"`
	Status            string    `gorm:"type:varchar(20);default:'sent'"`
	IsEncrypted       bool      `gorm:"default:false"`

	Reactions []ReactionRecord `gorm:"foreignKey:MessageID"`
}

// TableName 指定 MessageRecord 的表名。
func (MessageRecord) TableName() string {
	return "messages"
}

// ReactionRecord 保存一条消息上某个 emoji 的统计。
type ReactionRecord struct {
	ID          uint   `gorm:"primarykey"`
	MessageID   string `gorm:"type:varchar(64);not null;uniqueIndex:idx_message_emoji"`
	Emoji       string `gorm:"type:varchar(32);not null;uniqueIndex:idx_message_emoji"`
	Position    int
	Count       int `gorm:"not null"`
	ReactedByMe bool
}

// TableName 指定 ReactionRecord 的表名。
func (ReactionRecord) TableName() string {
	return "message_reactions"
}

// ToDomain 将记录转换为领域会话。参与者需按 Position 预先排序。
func (r ConversationRecord) ToDomain() models.Conversation {
	participants := make([]models.Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, p.ToDomain())
	}
	return models.Conversation{
		ID:                 r.ID,
		Type:               models.ConversationType(r.Type),
		Name:               r.Name,
		Participants:       participants,
		LastMessagePreview: r.LastMessagePreview,
		LastMessageAt:      r.LastMessageAt,
		UnreadCount:        r.UnreadCount,
		IsMuted:            r.IsMuted,
		IsPinned:           r.IsPinned,
		IsArchived:         r.IsArchived,
		IsEncrypted:        r.IsEncrypted,
	}
}

// ToDomain 将参与者记录转换为快照。
func (p ParticipantRecord) ToDomain() models.Participant {
	return models.Participant{
		ID:          p.UserID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
		IsOnline:    p.IsOnline,
		IsVerified:  p.IsVerified,
		Role:        models.ParticipantRole(p.Role),
		LastSeen:    p.LastSeenAt,
	}
}

// ToDomain 将记录转换为频道。
func (r RoomRecord) ToDomain() models.ChatRoom {
	return models.ChatRoom{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsPrivate:   r.IsPrivate,
		MemberCount: r.MemberCount,
		OnlineCount: r.OnlineCount,
	}
}

// ToDomain 将记录转换为消息。返回的消息尚未绑定归属。
func (r MessageRecord) ToDomain() (models.Message, error) {
	content, err := models.UnmarshalContent(r.Content)
	if err != nil {
		return models.Message{}, fmt.Errorf("消息 %s 内容无效: %w", r.ID, err)
	}
	status, err := models.ParseDeliveryStatus(r.Status)
	if err != nil {
		return models.Message{}, fmt.Errorf("消息 %s 状态无效: %w", r.ID, err)
	}
	var reactions models.Reactions
	for _, rr := range r.Reactions {
		reactions = append(reactions, models.Reaction{Emoji: rr.Emoji, Count: rr.Count, ReactedByMe: rr.ReactedByMe})
	}
	return models.Message{
		ID:                r.ID,
		TargetID:          r.TargetID,
		SenderID:          r.SenderID,
		SenderDisplayName: r.SenderDisplayName,
		Content:           content,
		Timestamp:         r.SentAt,
		Status:            status,
		Reactions:         reactions,
		IsEncrypted:       r.IsEncrypted,
	}, nil
}

// NewConversationRecord 从领域会话构建记录，用于导入快照。
func NewConversationRecord(c models.Conversation) ConversationRecord {
	rec := ConversationRecord{
		BaseModel:          BaseModel{ID: c.ID},
		Type:               string(c.Type),
		Name:               c.Name,
		LastMessagePreview: c.LastMessagePreview,
		LastMessageAt:      c.LastMessageAt,
		UnreadCount:        c.UnreadCount,
		IsMuted:            c.IsMuted,
		IsPinned:           c.IsPinned,
		IsArchived:         c.IsArchived,
		IsEncrypted:        c.IsEncrypted,
	}
	for i, p := range c.Participants {
		rec.Participants = append(rec.Participants, ParticipantRecord{
			ConversationID: c.ID,
			UserID:         p.ID,
			Position:       i,
			Handle:         p.Handle,
			DisplayName:    p.DisplayName,
			AvatarRef:      p.AvatarRef,
			IsOnline:       p.IsOnline,
			IsVerified:     p.IsVerified,
			Role:           string(p.Role),
			LastSeenAt:     p.LastSeen,
		})
	}
	return rec
}

// NewMessageRecord 从领域消息构建记录。
func NewMessageRecord(m models.Message) (MessageRecord, error) {
	content, err := models.MarshalContent(m.Content)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("序列化消息 %s 内容失败: %w", m.ID, err)
	}
	rec := MessageRecord{
		BaseModel:         BaseModel{ID: m.ID},
		TargetID:          m.TargetID,
		SenderID:          m.SenderID,
		SenderDisplayName: m.SenderDisplayName,
		Content:           content,
		SentAt:            m.Timestamp,
		Status:            string(m.Status),
		IsEncrypted:       m.IsEncrypted,
	}
	for i, r := range m.Reactions {
		rec.Reactions = append(rec.Reactions, ReactionRecord{
			MessageID:   m.ID,
			Emoji:       r.Emoji,
			Position:    i,
			Count:       r.Count,
			ReactedByMe: r.ReactedByMe,
		})
	}
	return rec, nil
}
