package models

import (
	"fmt"
	"strings"
)

// ChatRoom 代表一个按名称寻址的话题频道。
//
// 频道成员可能从未在本地单独加载过，因此 MemberCount 和 OnlineCount
// 是由 feed 提供的权威值，而不是从参与者列表推导出来的。
type ChatRoom struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"isPrivate"`
	MemberCount int    `json:"memberCount"`
	OnlineCount int    `json:"onlineCount"`
}

// Address 返回频道的寻址形式，例如 "#general"。
func (r ChatRoom) Address() string {
	return "#" + strings.TrimPrefix(r.Name, "#")
}

// Matches 报告频道名称或描述是否包含查询(不区分大小写)。空查询匹配所有频道。
func (r ChatRoom) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	q = strings.TrimPrefix(q, "#")
	return strings.Contains(strings.ToLower(r.Name), q) ||
		strings.Contains(strings.ToLower(r.Description), q)
}

// Validate 检查频道字段。
func (r ChatRoom) Validate() error {
	if r.ID == "" || r.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidRoom)
	}
	if r.MemberCount < 0 || r.OnlineCount < 0 {
		return fmt.Errorf("%w: room %s has negative counts", ErrInvalidRoom, r.ID)
	}
	return nil
}
