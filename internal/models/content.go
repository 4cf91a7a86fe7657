package models

import (
	"encoding/json"
	"fmt"
)

// ContentKind 定义了消息负载的类型。
type ContentKind string

const (
	TextContentKind   ContentKind = "text"
	ImageContentKind  ContentKind = "image"
	FileContentKind   ContentKind = "file"
	VoiceContentKind  ContentKind = "voice"
	SystemContentKind ContentKind = "system" // 系统通知，不属于任何发送者
	ReplyContentKind  ContentKind = "reply"
)

// MessageContent 是消息负载的联合类型，只能由本包中的变体实现。
type MessageContent interface {
	Kind() ContentKind
	isMessageContent()
}

// TextContent 普通文本消息。
type TextContent struct {
	Body string `json:"body"`
}

// ImageContent 图片消息，Caption 可选。
type ImageContent struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// FileContent 文件消息。SizeLabel 是已格式化的大小，例如 "2.4 MB"。
type FileContent struct {
	Name      string `json:"name"`
	SizeLabel string `json:"sizeLabel"`
	FileType  string `json:"fileType"`
}

// VoiceContent 语音消息。
type VoiceContent struct {
	DurationLabel string `json:"durationLabel"`
}

// SystemContent 系统消息，例如 "Neo joined the channel"。
type SystemContent struct {
	Body string `json:"body"`
}

// ReplyContent 回复消息。它内嵌原消息的快照，而不是对原消息的引用，
// 原消息被删除或未加载时回复依然可以完整展示。
type ReplyContent struct {
	OriginalSenderLabel string `json:"originalSenderLabel"`
	OriginalTextSnippet string `json:"originalTextSnippet"`
	ReplyBody           string `json:"replyBody"`
}

func (TextContent) Kind() ContentKind   { return TextContentKind }
func (ImageContent) Kind() ContentKind  { return ImageContentKind }
func (FileContent) Kind() ContentKind   { return FileContentKind }
func (VoiceContent) Kind() ContentKind  { return VoiceContentKind }
func (SystemContent) Kind() ContentKind { return SystemContentKind }
func (ReplyContent) Kind() ContentKind  { return ReplyContentKind }

func (TextContent) isMessageContent()   {}
func (ImageContent) isMessageContent()  {}
func (FileContent) isMessageContent()   {}
func (VoiceContent) isMessageContent()  {}
func (SystemContent) isMessageContent() {}
func (ReplyContent) isMessageContent()  {}

// Summarize 返回内容的单行文本摘要，用于会话列表预览和回复引用。
func Summarize(content MessageContent) string {
	switch c := content.(type) {
	case TextContent:
		return c.Body
	case ImageContent:
		if c.Caption != "" {
			return c.Caption
		}
		return "Photo"
	case FileContent:
		return "File: " + c.Name
	case VoiceContent:
		return "Voice message (" + c.DurationLabel + ")"
	case SystemContent:
		return c.Body
	case ReplyContent:
		return c.ReplyBody
	default:
		return ""
	}
}

// Snippet 按字符(rune)截断文本，超出部分以省略号结尾。
func Snippet(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// contentEnvelope 是 MessageContent 的序列化形式，kind 字段决定哪个变体有效。
type contentEnvelope struct {
	Kind                ContentKind `json:"kind"`
	Body                string      `json:"body,omitempty"`
	URL                 string      `json:"url,omitempty"`
	Caption             string      `json:"caption,omitempty"`
	Name                string      `json:"name,omitempty"`
	SizeLabel           string      `json:"sizeLabel,omitempty"`
	FileType            string      `json:"fileType,omitempty"`
	DurationLabel       string      `json:"durationLabel,omitempty"`
	OriginalSenderLabel string      `json:"originalSenderLabel,omitempty"`
	OriginalTextSnippet string      `json:"originalTextSnippet,omitempty"`
	ReplyBody           string      `json:"replyBody,omitempty"`
}

// MarshalContent 将内容编码为带 kind 字段的 JSON。
func MarshalContent(content MessageContent) ([]byte, error) {
	env := contentEnvelope{}
	switch c := content.(type) {
	case TextContent:
		env.Kind, env.Body = c.Kind(), c.Body
	case ImageContent:
		env.Kind, env.URL, env.Caption = c.Kind(), c.URL, c.Caption
	case FileContent:
		env.Kind, env.Name, env.SizeLabel, env.FileType = c.Kind(), c.Name, c.SizeLabel, c.FileType
	case VoiceContent:
		env.Kind, env.DurationLabel = c.Kind(), c.DurationLabel
	case SystemContent:
		env.Kind, env.Body = c.Kind(), c.Body
	case ReplyContent:
		env.Kind = c.Kind()
		env.OriginalSenderLabel = c.OriginalSenderLabel
		env.OriginalTextSnippet = c.OriginalTextSnippet
		env.ReplyBody = c.ReplyBody
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownContentKind, content)
	}
	return json.Marshal(env)
}

// UnmarshalContent 解析 MarshalContent 生成的 JSON。
func UnmarshalContent(data []byte) (MessageContent, error) {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("解析消息内容失败: %w", err)
	}
	switch env.Kind {
	case TextContentKind:
		return TextContent{Body: env.Body}, nil
	case ImageContentKind:
		return ImageContent{URL: env.URL, Caption: env.Caption}, nil
	case FileContentKind:
		return FileContent{Name: env.Name, SizeLabel: env.SizeLabel, FileType: env.FileType}, nil
	case VoiceContentKind:
		return VoiceContent{DurationLabel: env.DurationLabel}, nil
	case SystemContentKind:
		return SystemContent{Body: env.Body}, nil
	case ReplyContentKind:
		return ReplyContent{
			OriginalSenderLabel: env.OriginalSenderLabel,
			OriginalTextSnippet: env.OriginalTextSnippet,
			ReplyBody:           env.ReplyBody,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentKind, env.Kind)
	}
}
