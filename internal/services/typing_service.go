package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/logging"
	"im-messenger/internal/models"
)

// DefaultTypingExpiry 是没有刷新时输入状态的保留时间。
const DefaultTypingExpiry = 4 * time.Second

// TypingStore 保存输入状态条目。条目与消息历史分开存放。
type TypingStore interface {
	Put(ctx context.Context, entry models.TypingUser, ttl time.Duration) error
	Delete(ctx context.Context, targetID, participantID string) error
	// List 返回目标下的条目，可能包含尚未被清理的过期条目
	List(ctx context.Context, targetID string) ([]models.TypingUser, error)
	// Targets 返回当前有条目的目标 ID
	Targets(ctx context.Context) ([]string, error)
}

// MemoryTypingStore 是进程内的 TypingStore 实现。
type MemoryTypingStore struct {
	mu      sync.Mutex
	entries map[string]map[string]models.TypingUser // targetID -> participantID -> entry
}

// NewMemoryTypingStore 创建一个空的内存输入状态存储。
func NewMemoryTypingStore() *MemoryTypingStore {
	return &MemoryTypingStore{entries: make(map[string]map[string]models.TypingUser)}
}

func (m *MemoryTypingStore) Put(ctx context.Context, entry models.TypingUser, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byTarget, ok := m.entries[entry.TargetID]
	if !ok {
		byTarget = make(map[string]models.TypingUser)
		m.entries[entry.TargetID] = byTarget
	}
	byTarget[entry.Participant.ID] = entry
	return nil
}

func (m *MemoryTypingStore) Delete(ctx context.Context, targetID, participantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byTarget := m.entries[targetID]
	delete(byTarget, participantID)
	if len(byTarget) == 0 {
		delete(m.entries, targetID)
	}
	return nil
}

func (m *MemoryTypingStore) List(ctx context.Context, targetID string) ([]models.TypingUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TypingUser, 0, len(m.entries[targetID]))
	for _, e := range m.entries[targetID] {
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryTypingStore) Targets(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for id := range m.entries {
		out = append(out, id)
	}
	return out, nil
}

// TypingService 定义了输入状态的接口。
type TypingService interface {
	Ping(ctx context.Context, participant models.Participant, targetID string) error
	Stop(ctx context.Context, participantID, targetID string) error
	// Typing 返回目标下未过期的输入者，按刷新时间排序
	Typing(ctx context.Context, targetID string) ([]models.TypingUser, error)
	// Sweep 清理所有过期条目，并为受影响的目标发布变更
	Sweep(ctx context.Context) error
	Expiry() time.Duration
}

type typingService struct {
	store   *Store
	entries TypingStore
	expiry  time.Duration
	log     *zap.Logger
}

// NewTypingService 创建一个新的 TypingService。expiry <= 0 时使用 DefaultTypingExpiry。
func NewTypingService(store *Store, entries TypingStore, expiry time.Duration, log *zap.Logger) TypingService {
	if expiry <= 0 {
		expiry = DefaultTypingExpiry
	}
	if entries == nil {
		entries = NewMemoryTypingStore()
	}
	return &typingService{store: store, entries: entries, expiry: expiry, log: logging.OrNop(log)}
}

func (s *typingService) Expiry() time.Duration { return s.expiry }

func (s *typingService) Ping(ctx context.Context, participant models.Participant, targetID string) error {
	if participant.ID == "" || targetID == "" {
		return fmt.Errorf("%w: typing ping requires participant and target", ErrInvalidEvent)
	}
	entry := models.TypingUser{Participant: participant, TargetID: targetID, RefreshedAt: s.store.Now()}
	if err := s.entries.Put(ctx, entry, s.expiry); err != nil {
		return fmt.Errorf("保存输入状态失败: %w", err)
	}
	return s.publish(ctx, targetID)
}

func (s *typingService) Stop(ctx context.Context, participantID, targetID string) error {
	if err := s.entries.Delete(ctx, targetID, participantID); err != nil {
		return fmt.Errorf("删除输入状态失败: %w", err)
	}
	return s.publish(ctx, targetID)
}

func (s *typingService) Typing(ctx context.Context, targetID string) ([]models.TypingUser, error) {
	all, err := s.entries.List(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("读取输入状态失败: %w", err)
	}
	now := s.store.Now()
	live := make([]models.TypingUser, 0, len(all))
	for _, e := range all {
		if e.Expired(now, s.expiry) || e.Participant.ID == s.store.LocalUserID() {
			continue
		}
		live = append(live, e)
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].RefreshedAt.Equal(live[j].RefreshedAt) {
			return live[i].Participant.ID < live[j].Participant.ID
		}
		return live[i].RefreshedAt.Before(live[j].RefreshedAt)
	})
	return live, nil
}

func (s *typingService) Sweep(ctx context.Context) error {
	targets, err := s.entries.Targets(ctx)
	if err != nil {
		return fmt.Errorf("读取输入状态目标失败: %w", err)
	}
	sort.Strings(targets)
	now := s.store.Now()
	for _, targetID := range targets {
		all, err := s.entries.List(ctx, targetID)
		if err != nil {
			return fmt.Errorf("读取输入状态失败: %w", err)
		}
		removed := 0
		for _, e := range all {
			if !e.Expired(now, s.expiry) {
				continue
			}
			if err := s.entries.Delete(ctx, targetID, e.Participant.ID); err != nil {
				return fmt.Errorf("删除输入状态失败: %w", err)
			}
			removed++
		}
		if removed > 0 {
			s.log.Debug("typing entries expired", zap.String("targetId", targetID), zap.Int("count", removed))
			if err := s.publish(ctx, targetID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *typingService) publish(ctx context.Context, targetID string) error {
	live, err := s.Typing(ctx, targetID)
	if err != nil {
		return err
	}
	s.store.notify(imtypes.TypingChanged, targetID, live)
	return nil
}

// RunTypingSweeper 按 interval 周期调用 Sweep，直到 ctx 结束。
func RunTypingSweeper(ctx context.Context, typing TypingService, interval time.Duration, log *zap.Logger) {
	log = logging.OrNop(log)
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := typing.Sweep(ctx); err != nil {
				log.Warn("typing sweep failed", zap.Error(err))
			}
		}
	}
}
