package models

import "fmt"

// DeliveryStatus 定义了消息的投递状态。
type DeliveryStatus string

const (
	StatusSending   DeliveryStatus = "sending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed" // 终态，重发会创建新消息
)

// successPath 是成功路径上的状态顺序。
var successPath = []DeliveryStatus{StatusSending, StatusSent, StatusDelivered, StatusRead}

func (s DeliveryStatus) rank() int {
	for i, st := range successPath {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid 报告状态是否为已知值。
func (s DeliveryStatus) Valid() bool {
	return s == StatusFailed || s.rank() >= 0
}

// ParseDeliveryStatus 将字符串转换为 DeliveryStatus。
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// StatusPath 返回从 from 到 to 需要依次经过的状态(不含 from)。
//
// 成功路径上不允许跳过状态：sending -> read 会得到 [sent delivered read]。
// 目标不晚于当前状态时返回空路径，表示这是一个过期的更新。
// failed 只能从 sending 到达，且 failed 之后没有任何转换。
func StatusPath(from, to DeliveryStatus) ([]DeliveryStatus, error) {
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownStatus, from, to)
	}
	if from == StatusFailed {
		if to == StatusFailed {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if to == StatusFailed {
		if from != StatusSending {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return []DeliveryStatus{StatusFailed}, nil
	}

	fromRank, toRank := from.rank(), to.rank()
	if toRank <= fromRank {
		return nil, nil
	}
	path := make([]DeliveryStatus, 0, toRank-fromRank)
	path = append(path, successPath[fromRank+1:toRank+1]...)
	return path, nil
}
