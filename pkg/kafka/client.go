// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// maxAttempts 是同一条通知的最大投递次数，达到后提交 offset 放弃重试。
const maxAttempts = 3

// NotificationHandler 负责最终投递一条工单通知（例如发到 Telegram）。
type NotificationHandler interface {
	Notify(ctx context.Context, n tasks.SupportNotification) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:         kafka.TCP(brokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者并刷出缓冲的消息。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// Notifier 把工单通知发布到 Kafka，由后台消费者转发。
type Notifier struct{}

// NewNotifier 返回使用全局生产者的通知器。
func NewNotifier() Notifier {
	return Notifier{}
}

// Notify 发布一条通知，以工单 id 作为消息 key。
func (Notifier) Notify(ctx context.Context, n tasks.SupportNotification) error {
	if producer == nil {
		return errors.New("kafka producer not initialised")
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.TicketID),
		Value: value,
	})
}

// StartConsumer 启动消费者，把通知转发给 handler。ctx 取消时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, handler NotificationHandler, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	attempts := redisAttempts{rdb: rdb}
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			break
		}
		handleMessage(ctx, r, m, handler, attempts)
	}

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
	log.Info("Kafka 消费者已停止")
}

type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// attemptCounter 记录每条通知的失败次数。
type attemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string)
}

type redisAttempts struct {
	rdb *redis.Client
}

func (a redisAttempts) Incr(ctx context.Context, key string) (int64, error) {
	n, err := a.rdb.Incr(ctx, key).Result()
	if err == nil {
		_ = a.rdb.Expire(ctx, key, 24*time.Hour).Err()
	}
	return n, err
}

func (a redisAttempts) Reset(ctx context.Context, key string) {
	_ = a.rdb.Del(ctx, key).Err()
}

// handleMessage 处理一条消息。成功或达到重试上限时提交 offset；否则不提交，让 Kafka 重投。
func handleMessage(ctx context.Context, c committer, m kafka.Message, handler NotificationHandler, attempts attemptCounter) {
	var n tasks.SupportNotification
	if err := json.Unmarshal(m.Value, &n); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		// 消息格式错误，直接提交，避免阻塞队列
		commit(ctx, c, m)
		return
	}

	key := fmt.Sprintf("kafka:attempts:%s", n.TicketID)
	if err := handler.Notify(ctx, n); err != nil {
		log.Errorf("转发工单通知失败: ticket=%s, err: %v", n.TicketID, err)
		count, incErr := attempts.Incr(ctx, key)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return
		}
		if count >= maxAttempts {
			log.Errorf("工单通知多次失败(>=%d)，提交 offset 终止重试: ticket=%s", maxAttempts, n.TicketID)
			commit(ctx, c, m)
		}
		return
	}

	log.Infof("工单通知已转发: ticket=%s", n.TicketID)
	attempts.Reset(ctx, key)
	commit(ctx, c, m)
}

func commit(ctx context.Context, c committer, m kafka.Message) {
	if err := c.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func brokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
