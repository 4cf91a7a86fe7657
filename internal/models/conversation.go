package models

import (
	"fmt"
	"strings"
	"time"
)

// ConversationType 定义了会话的类型。
type ConversationType string

const (
	DirectConversation ConversationType = "direct" // 一对一聊天
	GroupConversation  ConversationType = "group"  // 群组聊天
)

// Conversation 代表一个通过参与者身份寻址的会话（一对一或群组）。
//
// 本地用户是隐含的，从不出现在 Participants 中；
// 因此一对一会话恰好有一个参与者记录，即对方。
type Conversation struct {
	ID                 string           `json:"id"`
	Type               ConversationType `json:"type"`
	Name               string           `json:"name,omitempty"`
	Participants       []Participant    `json:"participants"`
	LastMessagePreview string           `json:"lastMessagePreview,omitempty"`
	LastMessageAt      time.Time        `json:"lastMessageAt"`
	UnreadCount        int              `json:"unreadCount"`
	IsMuted            bool             `json:"isMuted"`
	IsPinned           bool             `json:"isPinned"`
	IsArchived         bool             `json:"isArchived"`
	IsEncrypted        bool             `json:"isEncrypted"`
}

// DisplayName 返回会话的展示名称：
// 显式名称优先；一对一会话使用对方名称；未命名的群组使用逗号连接的成员名称。
func (c Conversation) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Participants) == 0 {
		if c.Type == DirectConversation {
			return UnknownParticipantName
		}
		return "Empty group"
	}
	if c.Type == DirectConversation {
		return c.Participants[0].Name()
	}
	names := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		names = append(names, p.Name())
	}
	return strings.Join(names, ", ")
}

// IsOnline 对一对一会话返回对方的在线状态，对群组返回是否有任意成员在线。
func (c Conversation) IsOnline() bool {
	if c.Type == DirectConversation {
		return len(c.Participants) > 0 && c.Participants[0].IsOnline
	}
	return c.OnlineCount() > 0
}

// OnlineCount 返回在线参与者数量。每次调用都重新计算。
func (c Conversation) OnlineCount() int {
	n := 0
	for _, p := range c.Participants {
		if p.IsOnline {
			n++
		}
	}
	return n
}

// Participant 返回指定 ID 的参与者快照。
func (c Conversation) Participant(id string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// WithParticipant 返回将同 ID 参与者整体替换后的会话副本。
// 第二个返回值表示是否找到了该参与者。
func (c Conversation) WithParticipant(p Participant) (Conversation, bool) {
	for i, existing := range c.Participants {
		if existing.ID != p.ID {
			continue
		}
		participants := make([]Participant, len(c.Participants))
		copy(participants, c.Participants)
		participants[i] = p
		c.Participants = participants
		return c, true
	}
	return c, false
}

// Validate 检查会话的不变量。
func (c Conversation) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConversation)
	}
	switch c.Type {
	case DirectConversation:
		if len(c.Participants) != 1 {
			return fmt.Errorf("%w: direct conversation %s has %d participants", ErrInvalidConversation, c.ID, len(c.Participants))
		}
	case GroupConversation:
	default:
		return fmt.Errorf("%w: conversation %s has unknown type %q", ErrInvalidConversation, c.ID, c.Type)
	}
	if c.UnreadCount < 0 {
		return fmt.Errorf("%w: conversation %s has negative unread count", ErrInvalidConversation, c.ID)
	}
	for _, p := range c.Participants {
		if p.Handle == "" {
			continue
		}
		if err := ValidateHandle(p.Handle); err != nil {
			return fmt.Errorf("%w: conversation %s participant %s: %w", ErrInvalidConversation, c.ID, p.ID, err)
		}
	}
	return nil
}
