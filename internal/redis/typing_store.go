package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"im-messenger/internal/config"
	"im-messenger/internal/models"
	"im-messenger/internal/services"
)

const typingKeyPrefix = "typing:"

// typingKey 返回条目的键，格式为 typing:{targetID}:{participantID}。
func typingKey(targetID, participantID string) string {
	return typingKeyPrefix + targetID + ":" + participantID
}

// parseTypingKey 从键中取出目标 ID。参与者 ID 不含冒号，目标 ID 可以含冒号。
func parseTypingKey(key string) (targetID string, ok bool) {
	rest, found := strings.CutPrefix(key, typingKeyPrefix)
	if !found {
		return "", false
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", false
	}
	return rest[:i], true
}

// redisTypingStore 是 services.TypingStore 接口的 Redis 实现。
// 每个条目是一个带 TTL 的键，过期由 Redis 负责。
type redisTypingStore struct {
	client *redis.Client
}

// NewClient 根据配置创建 Redis 客户端并检查连接。
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisTypingStore 创建一个新的 redisTypingStore 实例。
func NewRedisTypingStore(client *redis.Client) services.TypingStore {
	return &redisTypingStore{client: client}
}

// Put 写入条目，TTL 为输入状态的过期时间。
func (r *redisTypingStore) Put(ctx context.Context, entry models.TypingUser, ttl time.Duration) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化输入状态失败: %w", err)
	}
	key := typingKey(entry.TargetID, entry.Participant.ID)
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("写入 Redis 输入状态失败 for %s: %w", key, err)
	}
	return nil
}

func (r *redisTypingStore) Delete(ctx context.Context, targetID, participantID string) error {
	key := typingKey(targetID, participantID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("删除 Redis 输入状态失败 for %s: %w", key, err)
	}
	return nil
}

// List 扫描目标下的全部键并批量读取。扫描与读取之间过期的键会被跳过。
func (r *redisTypingStore) List(ctx context.Context, targetID string) ([]models.TypingUser, error) {
	keys, err := r.scan(ctx, typingKeyPrefix+escapePattern(targetID)+":*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("读取 Redis 输入状态失败: %w", err)
	}
	out := make([]models.TypingUser, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.TypingUser
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			continue
		}
		if entry.TargetID == targetID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *redisTypingStore) Targets(ctx context.Context) ([]string, error) {
	keys, err := r.scan(ctx, typingKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var targets []string
	for _, key := range keys {
		targetID, ok := parseTypingKey(key)
		if !ok {
			continue
		}
		if _, dup := seen[targetID]; dup {
			continue
		}
		seen[targetID] = struct{}{}
		targets = append(targets, targetID)
	}
	return targets, nil
}

func (r *redisTypingStore) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("扫描 Redis 键 %s 失败: %w", pattern, err)
	}
	return keys, nil
}

// escapePattern 转义 glob 元字符，使目标 ID 按字面匹配。
func escapePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
