package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/logging"
	"im-messenger/internal/models"
)

// ReplySnippetLength 是引用原消息时保存的摘要最大长度（按字符计）。
const ReplySnippetLength = 120

// Sender 把本地创建的消息交给传输层。返回 nil 表示传输层已确认，消息进入 sent。
type Sender interface {
	Send(ctx context.Context, message models.Message) error
}

// SenderFunc 让普通函数实现 Sender。
type SenderFunc func(ctx context.Context, message models.Message) error

// Send 调用 f(ctx, message)。
func (f SenderFunc) Send(ctx context.Context, message models.Message) error {
	return f(ctx, message)
}

// Attachment 是草稿中待发送的附件，Kind 只能是 image、file 或 voice。
type Attachment struct {
	Kind          models.ContentKind `json:"kind"`
	URL           string             `json:"url,omitempty"`
	Caption       string             `json:"caption,omitempty"`
	Name          string             `json:"name,omitempty"`
	SizeLabel     string             `json:"sizeLabel,omitempty"`
	FileType      string             `json:"fileType,omitempty"`
	DurationLabel string             `json:"durationLabel,omitempty"`
}

// Content 将附件转换为消息内容。
func (a Attachment) Content() (models.MessageContent, error) {
	switch a.Kind {
	case models.ImageContentKind:
		if a.URL == "" {
			return nil, fmt.Errorf("%w: image attachment requires a url", ErrInvalidAttachment)
		}
		return models.ImageContent{URL: a.URL, Caption: a.Caption}, nil
	case models.FileContentKind:
		if a.Name == "" {
			return nil, fmt.Errorf("%w: file attachment requires a name", ErrInvalidAttachment)
		}
		return models.FileContent{Name: a.Name, SizeLabel: a.SizeLabel, FileType: a.FileType}, nil
	case models.VoiceContentKind:
		return models.VoiceContent{DurationLabel: a.DurationLabel}, nil
	default:
		return nil, fmt.Errorf("%w: %q cannot be attached", models.ErrUnknownContentKind, a.Kind)
	}
}

// ReplyRef 是被引用消息在引用时刻的快照，之后不再与原消息关联。
type ReplyRef struct {
	MessageID           string `json:"messageId"`
	OriginalSenderLabel string `json:"originalSenderLabel"`
	OriginalTextSnippet string `json:"originalTextSnippet"`
}

// Draft 是某个目标的未发送输入，每个目标独立。
type Draft struct {
	TargetID    string       `json:"targetId"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
	Reply       *ReplyRef    `json:"reply,omitempty"`
}

// IsEmpty 判断草稿是否没有可发送的内容。只有引用没有文字也算空。
func (d Draft) IsEmpty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Attachments) == 0
}

// ComposerService 定义了草稿编辑与发送的接口。
type ComposerService interface {
	UpdateDraft(targetID, text string) (Draft, error)
	AddAttachment(targetID string, attachment Attachment) (Draft, error)
	// QuoteMessage 把已加载的消息快照为草稿的引用。消息未加载时返回 false，草稿不变
	QuoteMessage(targetID, messageID string) (Draft, bool)
	ClearReply(targetID string) Draft
	Draft(targetID string) Draft
	DiscardDraft(targetID string)

	// SubmitDraft 将草稿转换为 sending 状态的消息并交给 Sender
	SubmitDraft(ctx context.Context, targetID string) ([]models.Message, error)
	// Retry 以新 ID 重新发送一条 failed 的本地消息，原消息保持 failed
	Retry(ctx context.Context, messageID string) (models.Message, error)
	// CancelSend 丢弃一条仍在 sending 的本地消息
	CancelSend(messageID string) error
}

type composerService struct {
	store    *Store
	messages MessageService
	sender   Sender
	log      *zap.Logger
	newID    func() string

	mu     sync.Mutex
	drafts map[string]Draft
}

// NewComposerService 创建一个新的 ComposerService 实例。
func NewComposerService(store *Store, messages MessageService, sender Sender, log *zap.Logger) ComposerService {
	return &composerService{
		store:    store,
		messages: messages,
		sender:   sender,
		log:      logging.OrNop(log),
		newID:    uuid.NewString,
		drafts:   make(map[string]Draft),
	}
}

func (s *composerService) UpdateDraft(targetID, text string) (Draft, error) {
	return s.editDraft(targetID, func(d *Draft) error {
		d.Text = text
		return nil
	})
}

func (s *composerService) AddAttachment(targetID string, attachment Attachment) (Draft, error) {
	if _, err := attachment.Content(); err != nil {
		return s.Draft(targetID), err
	}
	return s.editDraft(targetID, func(d *Draft) error {
		d.Attachments = append(append([]Attachment(nil), d.Attachments...), attachment)
		return nil
	})
}

func (s *composerService) QuoteMessage(targetID, messageID string) (Draft, bool) {
	original, ok := s.store.message(messageID)
	if !ok || original.IsSystem() {
		return s.Draft(targetID), false
	}
	ref := &ReplyRef{
		MessageID:           original.ID,
		OriginalSenderLabel: s.senderLabel(original),
		OriginalTextSnippet: models.Snippet(models.Summarize(original.Content), ReplySnippetLength),
	}
	d, err := s.editDraft(targetID, func(d *Draft) error {
		d.Reply = ref
		return nil
	})
	if err != nil {
		return d, false
	}
	return d, true
}

func (s *composerService) ClearReply(targetID string) Draft {
	d, err := s.editDraft(targetID, func(d *Draft) error {
		d.Reply = nil
		return nil
	})
	if err != nil {
		return Draft{TargetID: targetID}
	}
	return d
}

func (s *composerService) Draft(targetID string) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drafts[targetID]; ok {
		return d
	}
	return Draft{TargetID: targetID}
}

func (s *composerService) DiscardDraft(targetID string) {
	s.mu.Lock()
	_, existed := s.drafts[targetID]
	delete(s.drafts, targetID)
	s.mu.Unlock()
	if existed {
		s.store.notify(imtypes.DraftChanged, targetID, Draft{TargetID: targetID})
	}
}

func (s *composerService) editDraft(targetID string, fn func(*Draft) error) (Draft, error) {
	if _, ok := s.store.targetInfo(targetID); !ok {
		return Draft{TargetID: targetID}, fmt.Errorf("目标 %s: %w", targetID, ErrUnknownTarget)
	}
	s.mu.Lock()
	d, ok := s.drafts[targetID]
	if !ok {
		d = Draft{TargetID: targetID}
	}
	if err := fn(&d); err != nil {
		s.mu.Unlock()
		return d, err
	}
	s.drafts[targetID] = d
	s.mu.Unlock()
	s.store.notify(imtypes.DraftChanged, targetID, d)
	return d, nil
}

// SubmitDraft 先按附件顺序生成附件消息，再生成文字（或引用）消息。
// 消息追加后即清空该目标的草稿，随后逐条发送。
func (s *composerService) SubmitDraft(ctx context.Context, targetID string) ([]models.Message, error) {
	encrypted, ok := s.store.targetInfo(targetID)
	if !ok {
		return nil, fmt.Errorf("目标 %s: %w", targetID, ErrUnknownTarget)
	}

	s.mu.Lock()
	d, ok := s.drafts[targetID]
	if !ok || d.IsEmpty() {
		s.mu.Unlock()
		return nil, fmt.Errorf("目标 %s: %w", targetID, ErrEmptyDraft)
	}
	contents := make([]models.MessageContent, 0, len(d.Attachments)+1)
	for _, a := range d.Attachments {
		c, err := a.Content()
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		contents = append(contents, c)
	}
	if text := strings.TrimSpace(d.Text); text != "" {
		if d.Reply != nil {
			contents = append(contents, models.ReplyContent{
				OriginalSenderLabel: d.Reply.OriginalSenderLabel,
				OriginalTextSnippet: d.Reply.OriginalTextSnippet,
				ReplyBody:           text,
			})
		} else {
			contents = append(contents, models.TextContent{Body: text})
		}
	}
	delete(s.drafts, targetID)
	s.mu.Unlock()

	pending := make([]models.Message, 0, len(contents))
	for _, content := range contents {
		m, err := s.appendLocal(targetID, content, encrypted)
		if err != nil {
			return pending, err
		}
		pending = append(pending, m)
	}
	s.store.notify(imtypes.DraftChanged, targetID, Draft{TargetID: targetID})

	sent := make([]models.Message, 0, len(pending))
	for _, m := range pending {
		sent = append(sent, s.dispatch(ctx, m))
	}
	return sent, nil
}

func (s *composerService) Retry(ctx context.Context, messageID string) (models.Message, error) {
	failed, ok := s.store.message(messageID)
	if !ok {
		return models.Message{}, fmt.Errorf("消息 %s: %w", messageID, ErrStaleReference)
	}
	if !failed.IsOwn() || failed.Status != models.StatusFailed {
		return failed, fmt.Errorf("消息 %s (%s): %w", messageID, failed.Status, ErrNotRetryable)
	}
	m, err := s.appendLocal(failed.TargetID, failed.Content, failed.IsEncrypted)
	if err != nil {
		return models.Message{}, err
	}
	s.log.Info("retrying failed message", zap.String("messageId", messageID), zap.String("retryId", m.ID))
	return s.dispatch(ctx, m), nil
}

func (s *composerService) CancelSend(messageID string) error {
	_, err := s.store.removeMessage(messageID, func(m models.Message) error {
		if !m.IsOwn() || m.Status != models.StatusSending {
			return fmt.Errorf("消息 %s (%s): %w", messageID, m.Status, ErrNotCancellable)
		}
		return nil
	})
	if errors.Is(err, ErrStaleReference) {
		return fmt.Errorf("消息 %s: %w", messageID, ErrNotCancellable)
	}
	return err
}

func (s *composerService) appendLocal(targetID string, content models.MessageContent, encrypted bool) (models.Message, error) {
	m := models.Message{
		ID:                s.newID(),
		TargetID:          targetID,
		SenderID:          s.store.LocalUserID(),
		SenderDisplayName: s.store.localName,
		Content:           content,
		Timestamp:         s.store.Now(),
		Status:            models.StatusSending,
		IsEncrypted:       encrypted,
	}
	stored, _, err := s.store.appendMessage(m, false)
	return stored, err
}

// dispatch 发送消息并根据结果推进状态。发送期间消息被取消时只记录日志。
func (s *composerService) dispatch(ctx context.Context, m models.Message) models.Message {
	if s.sender == nil {
		return m
	}
	status := models.StatusSent
	if err := s.sender.Send(ctx, m); err != nil {
		s.log.Warn("message send failed",
			zap.String("messageId", m.ID),
			zap.String("targetId", m.TargetID),
			zap.Error(fmt.Errorf("%w: %v", ErrSendFailed, err)))
		status = models.StatusFailed
	}
	updated, err := s.messages.ApplyStatus(m.ID, status)
	if err != nil {
		if errors.Is(err, ErrStaleReference) {
			s.log.Debug("message discarded before ack", zap.String("messageId", m.ID))
		} else {
			s.log.Warn("apply send result failed", zap.String("messageId", m.ID), zap.Error(err))
		}
		if current, ok := s.store.message(m.ID); ok {
			return current
		}
		return m
	}
	return updated
}

func (s *composerService) senderLabel(m models.Message) string {
	if m.IsOwn() {
		return s.store.localName
	}
	if m.SenderDisplayName != "" {
		return m.SenderDisplayName
	}
	return m.SenderID
}
