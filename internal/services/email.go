package services

import (
	"github.com/google/uuid"

	"ezauth/internal/database"
	"ezauth/pkg/logger"
	"ezauth/pkg/queue"
)

// EmailService 邮件服务
// 邮件走Redis队列异步投递，由独立的worker进程消费。
// 入队失败只记日志不向调用方传播，注册流程不因邮件基础设施受阻
type EmailService struct {
	queue *queue.RedisQueue
}

func NewEmailService() *EmailService {
	return &EmailService{
		queue: database.GetRedisQueue(),
	}
}

// SendWelcomeEmail 发送欢迎邮件（异步，尽力而为）
func (s *EmailService) SendWelcomeEmail(to, name string, tenantID uint) {
	mailID := uuid.NewString()
	params := map[string]interface{}{
		"name": name,
	}

	if err := s.queue.Enqueue(mailID, "welcome", to, tenantID, params); err != nil {
		logger.GetLogger().Errorf("欢迎邮件入队失败 to=%s: %v", to, err)
		return
	}
	logger.GetLogger().Infof("欢迎邮件已入队: mail_id=%s, to=%s", mailID, to)
}
