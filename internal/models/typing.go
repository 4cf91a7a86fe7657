package models

import "time"

// TypingUser 是一条临时的"正在输入"记录，不会与消息历史一起保存。
type TypingUser struct {
	Participant Participant `json:"participant"`
	TargetID    string      `json:"targetId"`
	RefreshedAt time.Time   `json:"refreshedAt"`
}

// Expired 报告记录在 now 时刻是否已超过 ttl 未刷新。
func (t TypingUser) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.RefreshedAt) >= ttl
}
