package models

import "fmt"

// Reaction 是某个 emoji 在一条消息上的统计。
// ReactedByMe 表示本地用户是否贡献了其中一次计数。
type Reaction struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	ReactedByMe bool   `json:"reactedByMe"`
}

// Reactions 是一条消息上的全部表情统计，每个 emoji 至多一项，保持首次出现的顺序。
// 所有操作都返回新的切片，不修改接收者。
type Reactions []Reaction

func (rs Reactions) index(emoji string) int {
	for i, r := range rs {
		if r.Emoji == emoji {
			return i
		}
	}
	return -1
}

// Get 返回 emoji 对应的统计项。
func (rs Reactions) Get(emoji string) (Reaction, bool) {
	if i := rs.index(emoji); i >= 0 {
		return rs[i], true
	}
	return Reaction{}, false
}

func (rs Reactions) clone() Reactions {
	out := make(Reactions, len(rs))
	copy(out, rs)
	return out
}

func (rs Reactions) without(i int) Reactions {
	out := make(Reactions, 0, len(rs)-1)
	out = append(out, rs[:i]...)
	return append(out, rs[i+1:]...)
}

// Toggle 切换本地用户对 emoji 的反应。连续切换两次得到原来的统计。
func (rs Reactions) Toggle(emoji string) Reactions {
	i := rs.index(emoji)
	if i >= 0 && rs[i].ReactedByMe {
		if rs[i].Count <= 1 {
			return rs.without(i)
		}
		out := rs.clone()
		out[i].Count--
		out[i].ReactedByMe = false
		return out
	}
	if i < 0 {
		out := rs.clone()
		return append(out, Reaction{Emoji: emoji, Count: 1, ReactedByMe: true})
	}
	out := rs.clone()
	out[i].Count++
	out[i].ReactedByMe = true
	return out
}

// ApplyDelta 应用来自 feed 的计数变化。
// byLocal 表示这次变化是否由本地用户产生(例如另一个会话中的同一身份)。
// 会产生负数、零计数却 ReactedByMe、或重复本地反应的更新会被拒绝，接收者保持不变。
func (rs Reactions) ApplyDelta(emoji string, delta int, byLocal bool) (Reactions, error) {
	if delta == 0 {
		return rs, nil
	}
	i := rs.index(emoji)

	if byLocal {
		mine := i >= 0 && rs[i].ReactedByMe
		if (delta == 1 && !mine) || (delta == -1 && mine) {
			return rs.Toggle(emoji), nil
		}
		return rs, fmt.Errorf("%w: local delta %+d on %q (reactedByMe=%t)", ErrInvalidReactionState, delta, emoji, mine)
	}

	if i < 0 {
		if delta < 0 {
			return rs, fmt.Errorf("%w: delta %+d on absent %q", ErrInvalidReactionState, delta, emoji)
		}
		out := rs.clone()
		return append(out, Reaction{Emoji: emoji, Count: delta}), nil
	}

	next := rs[i].Count + delta
	switch {
	case next < 0:
		return rs, fmt.Errorf("%w: %q would drop to %d", ErrInvalidReactionState, emoji, next)
	case next == 0 && rs[i].ReactedByMe:
		return rs, fmt.Errorf("%w: %q would reach zero while reacted by me", ErrInvalidReactionState, emoji)
	case next == 0:
		return rs.without(i), nil
	}
	out := rs.clone()
	out[i].Count = next
	return out, nil
}

// Validate 检查统计是否满足不变量：emoji 唯一且计数至少为 1。
func (rs Reactions) Validate() error {
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if _, dup := seen[r.Emoji]; dup {
			return fmt.Errorf("%w: duplicate entry for %q", ErrInvalidReactionState, r.Emoji)
		}
		seen[r.Emoji] = struct{}{}
		if r.Count < 1 {
			return fmt.Errorf("%w: %q has count %d", ErrInvalidReactionState, r.Emoji, r.Count)
		}
	}
	return nil
}
