package repository

import (
	"context"
	"time"

	"github.com/huaiminqin/collection-self/internal/entity"
	"gorm.io/gorm"
)

// ReminderLogRepository 提醒记录仓库
type ReminderLogRepository struct {
	db *gorm.DB
}

// NewReminderLogRepository 创建提醒记录仓库
func NewReminderLogRepository(db *gorm.DB) *ReminderLogRepository {
	return &ReminderLogRepository{db: db}
}

// CreateBatch 批量写入提醒记录
func (r *ReminderLogRepository) CreateBatch(ctx context.Context, logs []entity.ReminderLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&logs).Error
}

// ListByTask 获取任务的提醒记录，按发送时间倒序
func (r *ReminderLogRepository) ListByTask(ctx context.Context, taskID string, offset, limit int) ([]entity.ReminderLog, error) {
	var logs []entity.ReminderLog
	q := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("sent_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&logs).Error
	return logs, err
}

// HasRecentForTask 任务在 since 之后是否已发送过提醒，自动提醒用它防止重复发送
func (r *ReminderLogRepository) HasRecentForTask(ctx context.Context, taskID string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ReminderLog{}).
		Where("task_id = ? AND sent_at > ?", taskID, since).
		Count(&count).Error
	return count > 0, err
}
