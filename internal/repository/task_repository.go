package repository

import (
	"context"
	"time"

	"github.com/huaiminqin/collection-self/internal/entity"
	"gorm.io/gorm"
)

// TaskRepository 收集任务仓库
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// List 获取任务列表，可按班级过滤
func (r *TaskRepository) List(ctx context.Context, classID string, offset, limit int) ([]entity.Task, error) {
	var tasks []entity.Task
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if classID != "" {
		q = q.Where("class_id = ?", classID)
	}
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&tasks).Error
	return tasks, err
}

// FindByID 根据ID查找任务
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Create 创建任务
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update 更新任务
func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// Delete 删除任务并级联删除提交与提醒记录，单事务内完成，
// 与并发提交互斥：提交事务内会重新确认任务存在
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.Submission{}, "task_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.ReminderLog{}, "task_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Task{}, "id = ?", id).Error
	})
}

// ListAutoRemind 获取启用自动提醒、截止时间在 now 之后的任务
func (r *TaskRepository) ListAutoRemind(ctx context.Context, now time.Time) ([]entity.Task, error) {
	var tasks []entity.Task
	err := r.db.WithContext(ctx).
		Where("auto_remind_enabled = ? AND deadline IS NOT NULL AND deadline > ?", true, now).
		Find(&tasks).Error
	return tasks, err
}
