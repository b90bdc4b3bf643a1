package repository

import (
	"context"

	"github.com/huaiminqin/collection-self/internal/entity"
	"gorm.io/gorm"
)

// SubmissionRepository 提交记录仓库
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository 创建提交仓库
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// DB 返回底层连接，提交服务在事务内做限额检查时使用
func (r *SubmissionRepository) DB() *gorm.DB {
	return r.db
}

// List 获取提交列表，task/member 过滤可选，按创建时间倒序
func (r *SubmissionRepository) List(ctx context.Context, taskID, memberID string, offset, limit int) ([]entity.Submission, error) {
	var subs []entity.Submission
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if taskID != "" {
		q = q.Where("task_id = ?", taskID)
	}
	if memberID != "" {
		q = q.Where("member_id = ?", memberID)
	}
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&subs).Error
	return subs, err
}

// ListByTask 获取任务的全部提交，按创建时间排序
func (r *SubmissionRepository) ListByTask(ctx context.Context, taskID string) ([]entity.Submission, error) {
	var subs []entity.Submission
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&subs).Error
	return subs, err
}

// ListByTaskAndType 获取任务下指定类型的提交
func (r *SubmissionRepository) ListByTaskAndType(ctx context.Context, taskID string, t entity.CollectType) ([]entity.Submission, error) {
	var subs []entity.Submission
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND submission_type = ?", taskID, t).
		Order("created_at").
		Find(&subs).Error
	return subs, err
}

// ListPublic 获取任务的公开提交（is_private=false），可排除某个成员
func (r *SubmissionRepository) ListPublic(ctx context.Context, taskID, excludeMemberID string) ([]entity.Submission, error) {
	var subs []entity.Submission
	q := r.db.WithContext(ctx).
		Where("task_id = ? AND is_private = ?", taskID, false)
	if excludeMemberID != "" {
		q = q.Where("member_id <> ?", excludeMemberID)
	}
	err := q.Order("created_at").Find(&subs).Error
	return subs, err
}

// FindByID 根据ID查找提交
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*entity.Submission, error) {
	var sub entity.Submission
	err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Delete 删除提交记录
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.Submission{}, "id = ?", id).Error
}
