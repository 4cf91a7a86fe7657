package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"im-messenger/internal/models"
)

// FixtureRepository 是内存中的快照来源，实现全部三个仓库接口。
// 未配置数据库时作为 mock feed 使用，也用于测试。
type FixtureRepository struct {
	mu            sync.RWMutex
	conversations []models.Conversation
	rooms         []models.ChatRoom
	messages      map[string][]models.Message
}

// NewFixtureRepository 创建一个空的内存仓库。
func NewFixtureRepository() *FixtureRepository {
	return &FixtureRepository{messages: make(map[string][]models.Message)}
}

func (r *FixtureRepository) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Conversation(nil), r.conversations...), nil
}

// SaveConversation 替换同 ID 的会话，不存在时追加到末尾。
func (r *FixtureRepository) SaveConversation(ctx context.Context, conversation models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conversations {
		if r.conversations[i].ID == conversation.ID {
			r.conversations[i] = conversation
			return nil
		}
	}
	r.conversations = append(r.conversations, conversation)
	return nil
}

func (r *FixtureRepository) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.ChatRoom(nil), r.rooms...), nil
}

func (r *FixtureRepository) SaveRoom(ctx context.Context, room models.ChatRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rooms {
		if r.rooms[i].ID == room.ID {
			r.rooms[i] = room
			return nil
		}
	}
	r.rooms = append(r.rooms, room)
	return nil
}

// ListMessages 返回最近的 limit 条消息，limit <= 0 表示全部。
func (r *FixtureRepository) ListMessages(ctx context.Context, targetID string, limit int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[targetID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.Message(nil), msgs...), nil
}

// SaveMessage 替换同 ID 的消息，否则按时间顺序插入。
func (r *FixtureRepository) SaveMessage(ctx context.Context, message models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[message.TargetID]
	for i := range msgs {
		if msgs[i].ID == message.ID {
			msgs[i] = message
			return nil
		}
	}
	msgs = append(msgs, message)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	r.messages[message.TargetID] = msgs
	return nil
}

// Targets 返回有消息的目标 ID，按字典序。
func (r *FixtureRepository) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make([]string, 0, len(r.messages))
	for id := range r.messages {
		targets = append(targets, id)
	}
	sort.Strings(targets)
	return targets
}

// DefaultFixtures 构建演示用的快照数据，时间相对 now 计算。
func DefaultFixtures(localUserID string, now time.Time) *FixtureRepository {
	lastSeen := now.Add(-2 * time.Hour)
	trinity := models.Participant{ID: "u-trinity", Handle: "trinity", DisplayName: "Trinity", IsOnline: true, IsVerified: true, Role: models.MemberRole}
	morpheus := models.Participant{ID: "u-morpheus", Handle: "morpheus", DisplayName: "Morpheus", Role: models.OwnerRole, LastSeen: &lastSeen}
	neo := models.Participant{ID: "u-neo", Handle: "neo", DisplayName: "Neo", IsOnline: true, Role: models.MemberRole}
	oracle := models.Participant{ID: "u-oracle", Handle: "oracle", DisplayName: "The Oracle", Role: models.MemberRole}
	niobe := models.Participant{ID: "u-niobe", Handle: "niobe", Role: models.AdminRole}

	r := NewFixtureRepository()
	r.conversations = []models.Conversation{
		{
			ID: "c-trinity", Type: models.DirectConversation, Participants: []models.Participant{trinity},
			LastMessagePreview: "Follow the white rabbit.", LastMessageAt: now.Add(-5 * time.Minute),
			UnreadCount: 2, IsPinned: true, IsEncrypted: true,
		},
		{
			ID: "c-crew", Type: models.GroupConversation, Name: "Nebuchadnezzar crew",
			Participants:       []models.Participant{morpheus, trinity, neo, niobe},
			LastMessagePreview: "Photo", LastMessageAt: now.Add(-20 * time.Minute),
			UnreadCount: 5, IsMuted: true,
		},
		{
			ID: "c-morpheus", Type: models.DirectConversation, Participants: []models.Participant{morpheus},
			LastMessagePreview: "What if I told you...", LastMessageAt: now.Add(-3 * time.Hour),
		},
		{
			ID: "c-zion", Type: models.GroupConversation, Participants: []models.Participant{trinity, morpheus},
			LastMessagePreview: "See you in Zion", LastMessageAt: now.Add(-26 * time.Hour),
		},
		{
			ID: "c-oracle", Type: models.DirectConversation, Participants: []models.Participant{oracle},
			LastMessagePreview: "Cookie?", LastMessageAt: now.Add(-72 * time.Hour),
			UnreadCount: 1, IsArchived: true,
		},
	}
	r.rooms = []models.ChatRoom{
		{ID: "r-golang", Name: "golang", Description: "Go programming and tooling", MemberCount: 1204, OnlineCount: 87},
		{ID: "r-security", Name: "security", Description: "Encryption, threat models and audits", MemberCount: 530, OnlineCount: 12},
		{ID: "r-design", Name: "design", Description: "Interface design critique", IsPrivate: true, MemberCount: 42, OnlineCount: 3},
	}

	at := func(d time.Duration) time.Time { return now.Add(-d) }
	r.messages["c-trinity"] = []models.Message{
		{ID: "m-t1", TargetID: "c-trinity", SenderID: trinity.ID, SenderDisplayName: trinity.Name(),
			Content: models.TextContent{Body: "Wake up."}, Timestamp: at(30 * time.Minute), Status: models.StatusRead, IsEncrypted: true},
		{ID: "m-t2", TargetID: "c-trinity", SenderID: localUserID, SenderDisplayName: "You",
			Content: models.ReplyContent{OriginalSenderLabel: trinity.Name(), OriginalTextSnippet: "Wake up.", ReplyBody: "Who is this?"},
			Timestamp: at(25 * time.Minute), Status: models.StatusRead, IsEncrypted: true,
			Reactions: models.Reactions{{Emoji: "👀", Count: 1}}},
		{ID: "m-t3", TargetID: "c-trinity", SenderID: trinity.ID, SenderDisplayName: trinity.Name(),
			Content: models.TextContent{Body: "Follow the white rabbit."}, Timestamp: at(5 * time.Minute), Status: models.StatusDelivered, IsEncrypted: true},
	}
	r.messages["c-crew"] = []models.Message{
		{ID: "m-c1", TargetID: "c-crew", SenderID: "", Content: models.SystemContent{Body: "Morpheus created the group"},
			Timestamp: at(48 * time.Hour), Status: models.StatusSent},
		{ID: "m-c2", TargetID: "c-crew", SenderID: morpheus.ID, SenderDisplayName: morpheus.Name(),
			Content: models.FileContent{Name: "construct.pdf", SizeLabel: "2.4 MB", FileType: "pdf"}, Timestamp: at(time.Hour), Status: models.StatusSent,
			Reactions: models.Reactions{{Emoji: "🔥", Count: 2, ReactedByMe: true}, {Emoji: "👍", Count: 1}}},
		{ID: "m-c3", TargetID: "c-crew", SenderID: localUserID, SenderDisplayName: "You",
			Content: models.VoiceContent{DurationLabel: "0:42"}, Timestamp: at(40 * time.Minute), Status: models.StatusDelivered},
		{ID: "m-c4", TargetID: "c-crew", SenderID: niobe.ID, SenderDisplayName: niobe.Name(),
			Content: models.ImageContent{URL: "https://images.example/logos.jpg"}, Timestamp: at(20 * time.Minute), Status: models.StatusSent},
	}
	r.messages["r-golang"] = []models.Message{
		{ID: "m-g1", TargetID: "r-golang", SenderID: neo.ID, SenderDisplayName: neo.Name(),
			Content: models.TextContent{Body: "Is there a spoon in the standard library?"}, Timestamp: at(15 * time.Minute), Status: models.StatusSent},
	}
	return r
}
