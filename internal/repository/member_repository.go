package repository

import (
	"context"

	"github.com/huaiminqin/collection-self/internal/entity"
	"gorm.io/gorm"
)

// MemberRepository 成员仓库
type MemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建成员仓库
func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// List 获取成员列表，可按班级过滤，按学号排序（即花名册顺序）
func (r *MemberRepository) List(ctx context.Context, classID string, offset, limit int) ([]entity.Member, error) {
	var members []entity.Member
	q := r.db.WithContext(ctx).Order("student_id")
	if classID != "" {
		q = q.Where("class_id = ?", classID)
	}
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&members).Error
	return members, err
}

// Roster 获取班级花名册，顺序稳定
func (r *MemberRepository) Roster(ctx context.Context, classID string) ([]entity.Member, error) {
	var members []entity.Member
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("student_id").
		Find(&members).Error
	return members, err
}

// FindByID 根据ID查找成员
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*entity.Member, error) {
	var member entity.Member
	err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByStudentID 根据学号查找成员
func (r *MemberRepository) FindByStudentID(ctx context.Context, studentID string) (*entity.Member, error) {
	var member entity.Member
	err := r.db.WithContext(ctx).First(&member, "student_id = ?", studentID).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// Create 创建成员
func (r *MemberRepository) Create(ctx context.Context, member *entity.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// Update 更新成员
func (r *MemberRepository) Update(ctx context.Context, member *entity.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// Delete 删除成员并级联删除其提交和提醒记录
func (r *MemberRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.Submission{}, "member_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.ReminderLog{}, "member_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Member{}, "id = ?", id).Error
	})
}
