package services

import "errors"

// 服务层的哨兵错误，调用方使用 errors.Is 判断。
var (
	// ErrStaleReference 表示引用的实体不存在或已被移除，调用方应忽略该更新
	ErrStaleReference = errors.New("stale reference")
	ErrUnknownTarget  = errors.New("unknown conversation or room")
	ErrEmptyDraft     = errors.New("draft is empty")
	ErrNotRetryable   = errors.New("message is not a failed local message")
	ErrNotCancellable = errors.New("message is not a pending local message")
	// ErrSendFailed 只会出现在日志中，界面上表现为 failed 状态
	ErrSendFailed   = errors.New("send failed")
	ErrUnknownEvent = errors.New("unknown feed event")
	ErrInvalidEvent = errors.New("invalid feed event")

	// ErrInvalidAttachment 表示附件缺少生成消息内容所需的字段
	ErrInvalidAttachment = errors.New("invalid attachment")
)
