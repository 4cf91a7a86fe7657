package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/models"
)

// Store 保存客户端的全部可变状态：会话、频道和已加载的消息。
//
// 所有写操作都在同一把写锁内完成一次读-改-写，并把产生的变更放入待发送队列；
// 锁释放后按入队顺序投递给订阅者。Store 的写方法不导出，只有各个 Service 能修改状态。
type Store struct {
	mu          sync.RWMutex
	localUserID string
	localName   string
	now         func() time.Time

	conversations       map[string]models.Conversation
	conversationOrder   []string
	conversationsLoaded bool

	rooms       map[string]models.ChatRoom
	roomOrder   []string
	roomsLoaded bool

	messages      map[string][]models.Message // targetID -> 按时间正序
	messageTarget map[string]string           // messageID -> targetID

	pending []imtypes.Change

	flushMu sync.Mutex
	subMu   sync.RWMutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(imtypes.Change)
}

// StoreOption 配置 Store。
type StoreOption func(*Store)

// WithClock 替换时间来源，测试中使用。
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLocalDisplayName 设置本地用户发出消息时使用的显示名。
func WithLocalDisplayName(name string) StoreOption {
	return func(s *Store) { s.localName = name }
}

// NewStore 创建一个属于 localUserID 的空 Store。
func NewStore(localUserID string, opts ...StoreOption) *Store {
	s := &Store{
		localUserID:   localUserID,
		localName:     "You",
		now:           time.Now,
		conversations: make(map[string]models.Conversation),
		rooms:         make(map[string]models.ChatRoom),
		messages:      make(map[string][]models.Message),
		messageTarget: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalUserID 返回本地用户 ID。
func (s *Store) LocalUserID() string { return s.localUserID }

// Now 返回 Store 使用的当前时间。
func (s *Store) Now() time.Time { return s.now() }

// Subscribe 注册一个变更回调，返回取消订阅函数。
// 回调在写锁释放后同步调用，不能阻塞。
func (s *Store) Subscribe(fn func(imtypes.Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// enqueueLocked 在持有写锁时记录一个变更。
func (s *Store) enqueueLocked(kind imtypes.ChangeKind, targetID, messageID string, payload any) {
	s.pending = append(s.pending, imtypes.Change{
		Kind:      kind,
		TargetID:  targetID,
		MessageID: messageID,
		Payload:   payload,
		At:        s.now(),
	})
}

// flush 按顺序投递待发送的变更。若另一个 goroutine 正在投递，由它负责清空队列。
func (s *Store) flush() {
	for {
		if !s.flushMu.TryLock() {
			return
		}
		for {
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}

			s.subMu.RLock()
			subs := make([]subscriber, len(s.subs))
			copy(subs, s.subs)
			s.subMu.RUnlock()

			for _, change := range batch {
				for _, sub := range subs {
					sub.fn(change)
				}
			}
		}
		s.flushMu.Unlock()

		s.mu.RLock()
		more := len(s.pending) > 0
		s.mu.RUnlock()
		if !more {
			return
		}
	}
}

// notify 发布一个不涉及 Store 状态的变更（草稿、输入状态）。
func (s *Store) notify(kind imtypes.ChangeKind, targetID string, payload any) {
	s.mu.Lock()
	s.enqueueLocked(kind, targetID, "", payload)
	s.mu.Unlock()
	s.flush()
}

// ---- 会话 ----

func (s *Store) replaceConversations(list []models.Conversation) {
	s.mu.Lock()
	s.conversations = make(map[string]models.Conversation, len(list))
	s.conversationOrder = s.conversationOrder[:0]
	for _, c := range list {
		if _, dup := s.conversations[c.ID]; !dup {
			s.conversationOrder = append(s.conversationOrder, c.ID)
		}
		s.conversations[c.ID] = c
	}
	s.conversationsLoaded = true
	s.enqueueLocked(imtypes.ConversationsLoaded, "", "", s.conversationListLocked())
	s.mu.Unlock()
	s.flush()
}

// upsertConversation 整体替换会话快照，新会话追加到末尾。
func (s *Store) upsertConversation(c models.Conversation) {
	s.mu.Lock()
	if _, ok := s.conversations[c.ID]; !ok {
		s.conversationOrder = append(s.conversationOrder, c.ID)
	}
	s.conversations[c.ID] = c
	s.enqueueLocked(imtypes.ConversationChanged, c.ID, "", c)
	s.mu.Unlock()
	s.flush()
}

func (s *Store) updateConversation(id string, fn func(models.Conversation) (models.Conversation, error)) (models.Conversation, error) {
	s.mu.Lock()
	current, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return models.Conversation{}, fmt.Errorf("会话 %s: %w", id, ErrStaleReference)
	}
	next, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return current, err
	}
	s.conversations[id] = next
	s.enqueueLocked(imtypes.ConversationChanged, id, "", next)
	s.mu.Unlock()
	s.flush()
	return next, nil
}

// updateConversations 对每个会话调用 fn，fn 返回 true 时替换该会话。返回被替换的会话。
func (s *Store) updateConversations(fn func(models.Conversation) (models.Conversation, bool)) []models.Conversation {
	s.mu.Lock()
	var changed []models.Conversation
	for _, id := range s.conversationOrder {
		next, ok := fn(s.conversations[id])
		if !ok {
			continue
		}
		s.conversations[id] = next
		changed = append(changed, next)
		s.enqueueLocked(imtypes.ConversationChanged, id, "", next)
	}
	s.mu.Unlock()
	s.flush()
	return changed
}

func (s *Store) conversation(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return c, ok
}

// conversationSnapshot 按插入顺序返回全部会话以及是否已加载。
func (s *Store) conversationSnapshot() ([]models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationListLocked(), s.conversationsLoaded
}

func (s *Store) conversationListLocked() []models.Conversation {
	list := make([]models.Conversation, 0, len(s.conversationOrder))
	for _, id := range s.conversationOrder {
		list = append(list, s.conversations[id])
	}
	return list
}

// ---- 频道 ----

func (s *Store) replaceRooms(list []models.ChatRoom) {
	s.mu.Lock()
	s.rooms = make(map[string]models.ChatRoom, len(list))
	s.roomOrder = s.roomOrder[:0]
	for _, r := range list {
		if _, dup := s.rooms[r.ID]; !dup {
			s.roomOrder = append(s.roomOrder, r.ID)
		}
		s.rooms[r.ID] = r
	}
	s.roomsLoaded = true
	s.enqueueLocked(imtypes.RoomsLoaded, "", "", s.roomListLocked())
	s.mu.Unlock()
	s.flush()
}

func (s *Store) updateRoom(id string, fn func(models.ChatRoom) (models.ChatRoom, error)) (models.ChatRoom, error) {
	s.mu.Lock()
	current, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return models.ChatRoom{}, fmt.Errorf("频道 %s: %w", id, ErrStaleReference)
	}
	next, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return current, err
	}
	s.rooms[id] = next
	s.enqueueLocked(imtypes.RoomChanged, id, "", next)
	s.mu.Unlock()
	s.flush()
	return next, nil
}

func (s *Store) room(id string) (models.ChatRoom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) roomSnapshot() ([]models.ChatRoom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomListLocked(), s.roomsLoaded
}

func (s *Store) roomListLocked() []models.ChatRoom {
	list := make([]models.ChatRoom, 0, len(s.roomOrder))
	for _, id := range s.roomOrder {
		list = append(list, s.rooms[id])
	}
	return list
}

// ---- 消息 ----

// targetInfo 判断目标是否存在，并返回新消息应继承的加密标志。
func (s *Store) targetInfo(targetID string) (encrypted bool, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targetInfoLocked(targetID)
}

func (s *Store) targetInfoLocked(targetID string) (bool, bool) {
	if c, ok := s.conversations[targetID]; ok {
		return c.IsEncrypted, true
	}
	if _, ok := s.rooms[targetID]; ok {
		return false, true
	}
	return false, false
}

// replaceMessages 用一次加载的结果刷新目标的消息列表，并绑定归属。
//
// 只存在于内存中的消息不会因为刷新而消失：本地 sending/failed 的消息总是保留，
// 其他不在结果中的消息只要不早于结果中最早的一条也会保留。
// 同一条消息的状态取两边中更靠后的一个。
func (s *Store) replaceMessages(targetID string, msgs []models.Message) ([]models.Message, error) {
	s.mu.Lock()
	if _, ok := s.targetInfoLocked(targetID); !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("目标 %s: %w", targetID, ErrUnknownTarget)
	}

	existing := make(map[string]models.Message, len(s.messages[targetID]))
	for _, old := range s.messages[targetID] {
		existing[old.ID] = old
		delete(s.messageTarget, old.ID)
	}

	merged := make([]models.Message, 0, len(msgs)+len(existing))
	loaded := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		m.TargetID = targetID
		m = m.WithOwnership(s.localUserID)
		if old, ok := existing[m.ID]; ok {
			if path, err := models.StatusPath(m.Status, old.Status); err == nil && len(path) > 0 {
				m.Status = old.Status
			}
		}
		loaded[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, old := range s.messages[targetID] {
		if _, ok := loaded[old.ID]; ok {
			continue
		}
		if keepOnReload(old, msgs) {
			merged = append(merged, old)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	for _, m := range merged {
		s.messageTarget[m.ID] = targetID
	}
	s.messages[targetID] = merged
	out := append([]models.Message(nil), merged...)
	s.enqueueLocked(imtypes.MessagesLoaded, targetID, "", out)
	s.mu.Unlock()
	s.flush()
	return out, nil
}

// keepOnReload 判断一条不在加载结果中的消息是否保留。
func keepOnReload(m models.Message, loaded []models.Message) bool {
	if m.IsOwn() && (m.Status == models.StatusSending || m.Status == models.StatusFailed) {
		return true
	}
	if len(loaded) == 0 {
		return true
	}
	oldest := loaded[0].Timestamp
	for _, l := range loaded[1:] {
		if l.Timestamp.Before(oldest) {
			oldest = l.Timestamp
		}
	}
	return !m.Timestamp.Before(oldest)
}

// appendMessage 追加一条消息并更新所属会话的预览。
// 若 ID 已存在则不做修改并返回已有消息和 false。
// countUnread 为 true 时，他人发送的非系统消息会增加会话未读数。
func (s *Store) appendMessage(m models.Message, countUnread bool) (models.Message, bool, error) {
	s.mu.Lock()
	if _, ok := s.targetInfoLocked(m.TargetID); !ok {
		s.mu.Unlock()
		return models.Message{}, false, fmt.Errorf("目标 %s: %w", m.TargetID, ErrUnknownTarget)
	}
	if existingTarget, dup := s.messageTarget[m.ID]; dup {
		existing, _ := s.findMessageLocked(existingTarget, m.ID)
		s.mu.Unlock()
		return existing, false, nil
	}

	m = m.WithOwnership(s.localUserID)
	s.messages[m.TargetID] = append(s.messages[m.TargetID], m)
	s.messageTarget[m.ID] = m.TargetID
	s.enqueueLocked(imtypes.MessageAppended, m.TargetID, m.ID, m)

	if c, ok := s.conversations[m.TargetID]; ok {
		if !m.Timestamp.Before(c.LastMessageAt) {
			c.LastMessagePreview = m.Preview()
			c.LastMessageAt = m.Timestamp
		}
		if countUnread && !m.IsOwn() && !m.IsSystem() {
			c.UnreadCount++
		}
		s.conversations[c.ID] = c
		s.enqueueLocked(imtypes.ConversationChanged, c.ID, "", c)
	}
	s.mu.Unlock()
	s.flush()
	return m, true, nil
}

// updateMessage 以 fn 返回的版本序列依次替换消息，每个版本发布一个变更。
// fn 返回空序列表示没有变化。
func (s *Store) updateMessage(id string, fn func(models.Message) ([]models.Message, error)) (models.Message, error) {
	s.mu.Lock()
	targetID, ok := s.messageTarget[id]
	if !ok {
		s.mu.Unlock()
		return models.Message{}, fmt.Errorf("消息 %s: %w", id, ErrStaleReference)
	}
	current, idx := s.findMessageLocked(targetID, id)
	versions, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return current, err
	}
	for _, v := range versions {
		s.enqueueLocked(imtypes.MessageUpdated, targetID, id, v)
		current = v
	}
	s.messages[targetID][idx] = current
	s.mu.Unlock()
	s.flush()
	return current, nil
}

// removeMessage 在 fn 允许时移除消息。
func (s *Store) removeMessage(id string, allow func(models.Message) error) (models.Message, error) {
	s.mu.Lock()
	targetID, ok := s.messageTarget[id]
	if !ok {
		s.mu.Unlock()
		return models.Message{}, fmt.Errorf("消息 %s: %w", id, ErrStaleReference)
	}
	current, idx := s.findMessageLocked(targetID, id)
	if err := allow(current); err != nil {
		s.mu.Unlock()
		return current, err
	}
	msgs := s.messages[targetID]
	s.messages[targetID] = append(msgs[:idx:idx], msgs[idx+1:]...)
	delete(s.messageTarget, id)
	s.enqueueLocked(imtypes.MessageRemoved, targetID, id, current)
	s.mu.Unlock()
	s.flush()
	return current, nil
}

func (s *Store) findMessageLocked(targetID, id string) (models.Message, int) {
	for i, m := range s.messages[targetID] {
		if m.ID == id {
			return m, i
		}
	}
	return models.Message{}, -1
}

func (s *Store) message(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	targetID, ok := s.messageTarget[id]
	if !ok {
		return models.Message{}, false
	}
	m, _ := s.findMessageLocked(targetID, id)
	return m, true
}

func (s *Store) messagesFor(targetID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages[targetID]...)
}
