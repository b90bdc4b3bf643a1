package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// ReminderService 提醒服务：向未交成员发送催交邮件并记录发送结果
type ReminderService struct {
	taskService    *TaskService
	settingService *SettingService
	reminderRepo   *repository.ReminderLogRepository
	cfg            *config.Config
	logger         *zap.Logger
}

// NewReminderService 创建提醒服务
func NewReminderService(
	taskService *TaskService,
	settingService *SettingService,
	reminderRepo *repository.ReminderLogRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		taskService:    taskService,
		settingService: settingService,
		reminderRepo:   reminderRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// ReminderResult 一次提醒发送的汇总
type ReminderResult struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Remind 向任务的全部未交成员发送提醒邮件。没有邮箱的成员跳过，
// 单个收件人失败不中断，逐条记录发送日志
func (s *ReminderService) Remind(ctx context.Context, taskID string) (*ReminderResult, error) {
	task, err := s.taskService.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	members, err := s.taskService.UnsubmittedMembers(ctx, task)
	if err != nil {
		return nil, err
	}

	result := &ReminderResult{Errors: []string{}}
	if len(members) == 0 {
		return result, nil
	}

	smtp, err := s.settingService.GetSMTP(ctx)
	if err != nil {
		return nil, err
	}
	if smtp.Host == "" || smtp.User == "" {
		return nil, NewDependencyError("SMTP 未配置，无法发送提醒")
	}

	dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.User, smtp.Password)
	if smtp.UseSSL {
		dialer.SSL = true
		dialer.TLSConfig = &tls.Config{ServerName: smtp.Host}
	}

	sender, err := dialer.Dial()
	if err != nil {
		return nil, NewDependencyError("连接邮件服务器失败: %v", err)
	}
	defer sender.Close()

	now := time.Now()
	logs := make([]entity.ReminderLog, 0, len(members))
	for _, m := range members {
		if m.Email == "" {
			result.Skipped++
			continue
		}
		result.Total++

		msg := gomail.NewMessage()
		msg.SetHeader("From", smtp.User)
		msg.SetHeader("To", m.Email)
		msg.SetHeader("Subject", fmt.Sprintf("【提交提醒】%s", task.Title))
		msg.SetBody("text/html", s.buildBody(task, &m))

		log := entity.ReminderLog{
			ID:       uuid.New().String()[:32],
			TaskID:   task.ID,
			MemberID: m.ID,
			Email:    m.Email,
			SentAt:   now,
		}
		if err := gomail.Send(sender, msg); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s(%s): %v", m.Name, m.Email, err))
			log.Status = entity.ReminderStatusFailed
			log.ErrorMessage = err.Error()
			s.logger.Warn("提醒邮件发送失败",
				zap.String("task_id", task.ID),
				zap.String("member_id", m.ID),
				zap.Error(err))
		} else {
			result.Success++
			log.Status = entity.ReminderStatusSent
		}
		logs = append(logs, log)
	}

	if len(logs) > 0 {
		if err := s.reminderRepo.CreateBatch(ctx, logs); err != nil {
			s.logger.Error("写入提醒日志失败", zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	s.logger.Info("提醒发送完成",
		zap.String("task_id", task.ID),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// Logs 查询任务的提醒发送记录
func (s *ReminderService) Logs(ctx context.Context, taskID string, offset, limit int) ([]entity.ReminderLog, error) {
	if _, err := s.taskService.Get(ctx, taskID); err != nil {
		return nil, err
	}
	return s.reminderRepo.ListByTask(ctx, taskID, offset, limit)
}

// HasRecent 任务在 since 之后是否已发送过提醒，自动提醒用它去重
func (s *ReminderService) HasRecent(ctx context.Context, taskID string, since time.Time) (bool, error) {
	return s.reminderRepo.HasRecentForTask(ctx, taskID, since)
}

func (s *ReminderService) buildBody(task *entity.Task, m *entity.Member) string {
	deadline := "无截止时间"
	if task.Deadline != nil {
		deadline = task.Deadline.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf(`
<div style="font-family: sans-serif; max-width: 600px;">
  <h2>%s 同学，你好</h2>
  <p>你还没有完成以下收集任务的提交：</p>
  <p style="font-size: 18px; font-weight: bold;">%s</p>
  <p>截止时间：%s</p>
  <p><a href="%s">点击前往提交</a></p>
  <p style="color: #999; font-size: 12px;">本邮件由系统自动发送，请勿回复。</p>
</div>`, m.Name, task.Title, deadline, s.cfg.Server.SiteURL)
}
