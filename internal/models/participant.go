package models

import (
	"fmt"
	"regexp"
	"time"
)

// ParticipantRole 定义了参与者在聊天室中的角色。
// 对于私聊和群聊会话，角色通常留空。
type ParticipantRole string

const (
	OwnerRole     ParticipantRole = "owner"
	AdminRole     ParticipantRole = "admin"
	ModeratorRole ParticipantRole = "moderator"
	MemberRole    ParticipantRole = "member"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Participant 代表一个用户在某一时刻的快照。
// 快照不可变：在线状态变化时整体替换，而不是修改字段。
type Participant struct {
	ID          string          `json:"id"`
	Handle      string          `json:"handle"`
	DisplayName string          `json:"displayName"`
	AvatarRef   string          `json:"avatarRef,omitempty"`
	IsOnline    bool            `json:"isOnline"`
	IsVerified  bool            `json:"isVerified"`
	Role        ParticipantRole `json:"role,omitempty"`
	LastSeen    *time.Time      `json:"lastSeen,omitempty"`
}

// UnknownParticipantName 是参与者没有任何可展示标识时使用的名称。
const UnknownParticipantName = "Unknown user"

// Name 返回用于展示的名称，优先使用显示名，其次是 handle，然后是 ID，永不为空。
func (p Participant) Name() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Handle != "":
		return p.Handle
	case p.ID != "":
		return p.ID
	default:
		return UnknownParticipantName
	}
}

// WithPresence 返回一个替换了在线状态的新快照。
// 下线时记录最后在线时间。
func (p Participant) WithPresence(online bool, at time.Time) Participant {
	next := p
	next.IsOnline = online
	if !online && !at.IsZero() {
		seen := at
		next.LastSeen = &seen
	}
	return next
}

// ValidateHandle 检查 handle 是否为 URL 安全的字符串。
func ValidateHandle(handle string) error {
	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return nil
}
