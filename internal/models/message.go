package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message 代表一条聊天消息，属于某个会话或聊天室(TargetID)。
//
// 消息是否属于本地用户不是可设置的字段：它只能由 WithOwnership 通过比较
// SenderID 与本地用户 ID 得出，避免数据与界面在气泡对齐上出现分歧。
type Message struct {
	ID                string
	TargetID          string
	SenderID          string
	SenderDisplayName string
	Content           MessageContent
	Timestamp         time.Time
	Status            DeliveryStatus
	Reactions         Reactions
	IsEncrypted       bool

	own bool
}

// WithOwnership 返回根据本地用户 ID 绑定了归属的消息副本。
// 系统消息永远不属于任何人。
func (m Message) WithOwnership(localUserID string) Message {
	m.own = localUserID != "" && m.SenderID == localUserID && !m.IsSystem()
	return m
}

// IsOwn 报告消息是否由本地用户发送。
func (m Message) IsOwn() bool { return m.own }

// IsSystem 报告消息是否为系统消息，系统消息不显示头像、操作和状态。
func (m Message) IsSystem() bool {
	return m.Content != nil && m.Content.Kind() == SystemContentKind
}

// ShowsStatus 报告是否向用户展示投递状态。其他人的消息状态仍会被跟踪，只是不展示。
func (m Message) ShowsStatus() bool {
	return m.own && !m.IsSystem()
}

// Preview 返回消息的单行摘要。
func (m Message) Preview() string {
	return Summarize(m.Content)
}

type messageJSON struct {
	ID                string          `json:"id"`
	TargetID          string          `json:"targetId"`
	SenderID          string          `json:"senderId,omitempty"`
	SenderDisplayName string          `json:"senderDisplayName,omitempty"`
	Content           json.RawMessage `json:"content"`
	Timestamp         time.Time       `json:"timestamp"`
	Status            DeliveryStatus  `json:"status"`
	Reactions         Reactions       `json:"reactions,omitempty"`
	IsEncrypted       bool            `json:"isEncrypted"`
	IsOwn             bool            `json:"isOwn"`
	ShowsStatus       bool            `json:"showsStatus"`
}

// MarshalJSON 输出消息，isOwn 与 showsStatus 仅用于展示。
func (m Message) MarshalJSON() ([]byte, error) {
	content, err := MarshalContent(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{
		ID:                m.ID,
		TargetID:          m.TargetID,
		SenderID:          m.SenderID,
		SenderDisplayName: m.SenderDisplayName,
		Content:           content,
		Timestamp:         m.Timestamp,
		Status:            m.Status,
		Reactions:         m.Reactions,
		IsEncrypted:       m.IsEncrypted,
		IsOwn:             m.own,
		ShowsStatus:       m.ShowsStatus(),
	})
}

// UnmarshalJSON 解析消息。输入中的 isOwn 会被忽略，调用方必须再调用 WithOwnership。
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := UnmarshalContent(raw.Content)
	if err != nil {
		return fmt.Errorf("消息 %s: %w", raw.ID, err)
	}
	if raw.Status == "" {
		raw.Status = StatusSent
	}
	if !raw.Status.Valid() {
		return fmt.Errorf("消息 %s: %w: %q", raw.ID, ErrUnknownStatus, raw.Status)
	}
	*m = Message{
		ID:                raw.ID,
		TargetID:          raw.TargetID,
		SenderID:          raw.SenderID,
		SenderDisplayName: raw.SenderDisplayName,
		Content:           content,
		Timestamp:         raw.Timestamp,
		Status:            raw.Status,
		Reactions:         raw.Reactions,
		IsEncrypted:       raw.IsEncrypted,
	}
	return nil
}
