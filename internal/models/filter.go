package models

import (
	"fmt"
	"strings"
)

// ConversationFilter 定义了会话列表的过滤条件。
type ConversationFilter string

const (
	FilterAll      ConversationFilter = "all"
	FilterUnread   ConversationFilter = "unread"
	FilterDirect   ConversationFilter = "direct"
	FilterGroups   ConversationFilter = "groups"
	FilterArchived ConversationFilter = "archived"
)

// ParseConversationFilter 解析过滤条件，空字符串视为 all。
func ParseConversationFilter(s string) (ConversationFilter, error) {
	f := ConversationFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterUnread, FilterDirect, FilterGroups, FilterArchived:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Matches 报告会话是否满足过滤条件。
//
// Unread 也包含已归档的会话：归档会话中的未读消息同样需要被看到。
func (f ConversationFilter) Matches(c Conversation) bool {
	switch f {
	case FilterAll:
		return !c.IsArchived
	case FilterUnread:
		return c.UnreadCount > 0
	case FilterDirect:
		return c.Type == DirectConversation && !c.IsArchived
	case FilterGroups:
		return c.Type == GroupConversation && !c.IsArchived
	case FilterArchived:
		return c.IsArchived
	default:
		return false
	}
}
