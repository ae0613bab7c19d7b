package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisQueue Redis队列实现，承载异步邮件任务
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// MailMessage 队列中的邮件消息
type MailMessage struct {
	MailID    string                 `json:"mail_id"`
	Template  string                 `json:"template"` // 邮件模板，如 welcome / reset-password
	To        string                 `json:"to"`
	TenantID  uint                   `json:"tenant_id"`
	Params    map[string]interface{} `json:"params"`
	Created   int64                  `json:"created"`
	Attempts  int                    `json:"attempts"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// NewRedisQueue 创建Redis队列实例
func NewRedisQueue(config *Config) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "ezauth:mail"
	}

	return &RedisQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *RedisQueue) Ping() error {
	ctx := context.Background()
	return q.client.Ping(ctx).Err()
}

// Enqueue 将邮件任务加入队列（左侧入队，消费端BRPop）
func (q *RedisQueue) Enqueue(mailID, template, to string, tenantID uint, params map[string]interface{}) error {
	ctx := context.Background()

	message := MailMessage{
		MailID:   mailID,
		Template: template,
		To:       to,
		TenantID: tenantID,
		Params:   params,
		Created:  time.Now().Unix(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化邮件消息失败: %v", err)
	}

	if err := q.client.LPush(ctx, q.getQueueKey(), data).Err(); err != nil {
		return fmt.Errorf("邮件任务入队失败: %v", err)
	}

	// 记录任务状态（用于排障查询），24小时后自动清理
	mailKey := q.getMailKey(mailID)
	mailInfo := map[string]interface{}{
		"mail_id":   mailID,
		"template":  template,
		"to":        to,
		"tenant_id": tenantID,
		"status":    "queued",
		"queued_at": time.Now().Unix(),
	}
	if err := q.client.HSet(ctx, mailKey, mailInfo).Err(); err != nil {
		return fmt.Errorf("记录邮件状态失败: %v", err)
	}
	q.client.Expire(ctx, mailKey, 24*time.Hour)

	return nil
}

// Dequeue 阻塞取出一个邮件任务，供独立的发信Worker消费
func (q *RedisQueue) Dequeue(timeout time.Duration) (*MailMessage, error) {
	ctx := context.Background()

	result, err := q.client.BRPop(ctx, timeout, q.getQueueKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时无任务
		}
		return nil, fmt.Errorf("邮件任务出队失败: %v", err)
	}

	// BRPop返回 [key, value]
	if len(result) < 2 {
		return nil, fmt.Errorf("邮件任务出队返回格式异常")
	}

	var message MailMessage
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		return nil, fmt.Errorf("反序列化邮件消息失败: %v", err)
	}

	return &message, nil
}

// QueueLength 当前队列长度
func (q *RedisQueue) QueueLength() (int64, error) {
	ctx := context.Background()
	return q.client.LLen(ctx, q.getQueueKey()).Result()
}

func (q *RedisQueue) getQueueKey() string {
	return fmt.Sprintf("%s:pending", q.prefix)
}

func (q *RedisQueue) getMailKey(mailID string) string {
	return fmt.Sprintf("%s:status:%s", q.prefix, mailID)
}
