// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hr-assistant-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ErrContextNotFound 表示用户没有仍在有效期内的对话上下文。
var ErrContextNotFound = errors.New("conversation context not found")

// ErrInvalidStoreType 表示不支持的上下文存储类型。
var ErrInvalidStoreType = errors.New("invalid context store type")

// ContextStoreType 是上下文存储的驱动类型。
type ContextStoreType string

const (
	ContextStoreMemory ContextStoreType = "memory"
	ContextStoreRedis  ContextStoreType = "redis"
)

// ContextStore 定义了每用户对话上下文的存取接口。
// 每个用户只保留一条记录，后写覆盖；超过 TTL 的记录视为不存在。
type ContextStore interface {
	Save(ctx context.Context, record *model.ConversationContext) error
	Get(ctx context.Context, userID string) (*model.ConversationContext, error)
	Delete(ctx context.Context, userID string) error
}

// ContextStoreOption 配置上下文存储。
type ContextStoreOption func(*contextStoreConfig)

type contextStoreConfig struct {
	redisClient *redis.Client
	ttl         time.Duration
	now         func() time.Time
}

// WithRedisClient 为 redis 驱动设置客户端。
func WithRedisClient(client *redis.Client) ContextStoreOption {
	return func(c *contextStoreConfig) {
		c.redisClient = client
	}
}

// WithContextTTL 设置上下文有效期，默认 15 分钟。
func WithContextTTL(ttl time.Duration) ContextStoreOption {
	return func(c *contextStoreConfig) {
		c.ttl = ttl
	}
}

// WithStoreClock 注入时钟，仅内存驱动使用。
func WithStoreClock(now func() time.Time) ContextStoreOption {
	return func(c *contextStoreConfig) {
		c.now = now
	}
}

// NewContextStore 根据类型创建上下文存储。redis 驱动需要 WithRedisClient。
func NewContextStore(storeType ContextStoreType, opts ...ContextStoreOption) (ContextStore, error) {
	cfg := &contextStoreConfig{ttl: 15 * time.Minute, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = 15 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	switch storeType {
	case ContextStoreMemory, "":
		return &memoryContextStore{
			records: make(map[string]*model.ConversationContext),
			ttl:     cfg.ttl,
			now:     cfg.now,
		}, nil
	case ContextStoreRedis:
		if cfg.redisClient == nil {
			return nil, fmt.Errorf("redis context store requires a client: %w", ErrInvalidStoreType)
		}
		return &redisContextStore{client: cfg.redisClient, ttl: cfg.ttl}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStoreType, storeType)
	}
}

// memoryContextStore 将上下文保存在进程内，读时惰性淘汰，写时顺带清理过期记录。
type memoryContextStore struct {
	mu      sync.Mutex
	records map[string]*model.ConversationContext
	ttl     time.Duration
	now     func() time.Time
}

func (s *memoryContextStore) Save(ctx context.Context, record *model.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, r := range s.records {
		if now.Sub(r.Timestamp) > s.ttl {
			delete(s.records, id)
		}
	}

	stored := *record
	stored.Timestamp = now
	s.records[record.UserID] = &stored
	record.Timestamp = now
	return nil
}

func (s *memoryContextStore) Get(ctx context.Context, userID string) (*model.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		return nil, ErrContextNotFound
	}
	if s.now().Sub(r.Timestamp) > s.ttl {
		delete(s.records, userID)
		return nil, ErrContextNotFound
	}
	out := *r
	return &out, nil
}

func (s *memoryContextStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// redisContextStore 依赖 Redis 的键过期实现 TTL。
type redisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func contextKey(userID string) string {
	return fmt.Sprintf("assistant:context:%s", userID)
}

func (s *redisContextStore) Save(ctx context.Context, record *model.ConversationContext) error {
	record.Timestamp = time.Now()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation context: %w", err)
	}
	if err := s.client.Set(ctx, contextKey(record.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set conversation context: %w", err)
	}
	return nil
}

func (s *redisContextStore) Get(ctx context.Context, userID string) (*model.ConversationContext, error) {
	val, err := s.client.Get(ctx, contextKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, ErrContextNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation context: %w", err)
	}
	var record model.ConversationContext
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation context: %w", err)
	}
	return &record, nil
}

func (s *redisContextStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, contextKey(userID)).Err()
}
