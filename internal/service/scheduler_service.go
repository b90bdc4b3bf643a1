package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/huaiminqin/collection-self/internal/repository"
)

// 自动提醒检查间隔与同任务去重窗口
const (
	autoRemindCheckSpec = "@every 10m"
	autoRemindDedupe    = time.Hour
)

// SchedulerService 定时任务服务：周期检查临近截止的任务并触发自动提醒
type SchedulerService struct {
	taskRepo        *repository.TaskRepository
	reminderService *ReminderService
	logger          *zap.Logger
	cron            *cron.Cron
}

// NewSchedulerService 创建定时任务服务
func NewSchedulerService(taskRepo *repository.TaskRepository, reminderService *ReminderService, logger *zap.Logger) *SchedulerService {
	return &SchedulerService{
		taskRepo:        taskRepo,
		reminderService: reminderService,
		logger:          logger,
		cron:            cron.New(),
	}
}

// Start 启动调度器
func (s *SchedulerService) Start() error {
	if _, err := s.cron.AddFunc(autoRemindCheckSpec, s.checkAutoRemind); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("自动提醒调度器已启动")
	return nil
}

// Stop 停止调度器，等待正在执行的检查结束
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("自动提醒调度器已停止")
}

// checkAutoRemind 扫描启用自动提醒的任务，进入提醒窗口且一小时内
// 未发送过提醒的任务触发一次发送
func (s *SchedulerService) checkAutoRemind() {
	ctx := context.Background()
	now := time.Now()

	tasks, err := s.taskRepo.ListAutoRemind(ctx, now)
	if err != nil {
		s.logger.Error("查询自动提醒任务失败", zap.Error(err))
		return
	}

	for _, task := range tasks {
		window := time.Duration(task.RemindBeforeHours) * time.Hour
		if task.Deadline.Sub(now) > window {
			continue
		}

		recent, err := s.reminderService.HasRecent(ctx, task.ID, now.Add(-autoRemindDedupe))
		if err != nil {
			s.logger.Error("查询提醒记录失败", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		if recent {
			continue
		}

		s.logger.Info("触发自动提醒",
			zap.String("task_id", task.ID),
			zap.String("title", task.Title),
			zap.Timep("deadline", task.Deadline))
		if _, err := s.reminderService.Remind(ctx, task.ID); err != nil {
			s.logger.Error("自动提醒发送失败", zap.String("task_id", task.ID), zap.Error(err))
		}
	}
}
