package repository

import (
	"context"
	"errors"

	"github.com/huaiminqin/collection-self/internal/entity"
	"gorm.io/gorm"
)

// OrganizationRepository 学院/年级/班级仓库
type OrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建组织架构仓库
func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// ListColleges 获取学院列表
func (r *OrganizationRepository) ListColleges(ctx context.Context) ([]entity.College, error) {
	var colleges []entity.College
	err := r.db.WithContext(ctx).Order("created_at").Find(&colleges).Error
	return colleges, err
}

// FindCollegeByID 根据ID查找学院
func (r *OrganizationRepository) FindCollegeByID(ctx context.Context, id string) (*entity.College, error) {
	var college entity.College
	err := r.db.WithContext(ctx).First(&college, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &college, nil
}

// CreateCollege 创建学院
func (r *OrganizationRepository) CreateCollege(ctx context.Context, college *entity.College) error {
	return r.db.WithContext(ctx).Create(college).Error
}

// UpdateCollege 更新学院
func (r *OrganizationRepository) UpdateCollege(ctx context.Context, college *entity.College) error {
	return r.db.WithContext(ctx).Save(college).Error
}

// DeleteCollege 删除学院，级联删除下属年级、班级、成员、任务和提交
func (r *OrganizationRepository) DeleteCollege(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grades []entity.Grade
		if err := tx.Where("college_id = ?", id).Find(&grades).Error; err != nil {
			return err
		}
		for _, g := range grades {
			if err := deleteGradeTx(tx, g.ID); err != nil {
				return err
			}
		}
		return tx.Delete(&entity.College{}, "id = ?", id).Error
	})
}

// ListGrades 获取年级列表，可按学院过滤
func (r *OrganizationRepository) ListGrades(ctx context.Context, collegeID string) ([]entity.Grade, error) {
	var grades []entity.Grade
	q := r.db.WithContext(ctx).Order("created_at")
	if collegeID != "" {
		q = q.Where("college_id = ?", collegeID)
	}
	err := q.Find(&grades).Error
	return grades, err
}

// FindGradeByID 根据ID查找年级
func (r *OrganizationRepository) FindGradeByID(ctx context.Context, id string) (*entity.Grade, error) {
	var grade entity.Grade
	err := r.db.WithContext(ctx).First(&grade, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

// CreateGrade 创建年级
func (r *OrganizationRepository) CreateGrade(ctx context.Context, grade *entity.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

// UpdateGrade 更新年级
func (r *OrganizationRepository) UpdateGrade(ctx context.Context, grade *entity.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

// DeleteGrade 删除年级及下属班级
func (r *OrganizationRepository) DeleteGrade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteGradeTx(tx, id)
	})
}

// ListClasses 获取班级列表，可按年级过滤
func (r *OrganizationRepository) ListClasses(ctx context.Context, gradeID string) ([]entity.Class, error) {
	var classes []entity.Class
	q := r.db.WithContext(ctx).Order("created_at")
	if gradeID != "" {
		q = q.Where("grade_id = ?", gradeID)
	}
	err := q.Find(&classes).Error
	return classes, err
}

// FindClassByID 根据ID查找班级
func (r *OrganizationRepository) FindClassByID(ctx context.Context, id string) (*entity.Class, error) {
	var class entity.Class
	err := r.db.WithContext(ctx).First(&class, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// CreateClass 创建班级
func (r *OrganizationRepository) CreateClass(ctx context.Context, class *entity.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

// UpdateClass 更新班级
func (r *OrganizationRepository) UpdateClass(ctx context.Context, class *entity.Class) error {
	return r.db.WithContext(ctx).Save(class).Error
}

// DeleteClass 删除班级及其成员、任务和提交
func (r *OrganizationRepository) DeleteClass(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteClassTx(tx, id)
	})
}

// IsNotFound 是否为记录不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func deleteGradeTx(tx *gorm.DB, gradeID string) error {
	var classes []entity.Class
	if err := tx.Where("grade_id = ?", gradeID).Find(&classes).Error; err != nil {
		return err
	}
	for _, c := range classes {
		if err := deleteClassTx(tx, c.ID); err != nil {
			return err
		}
	}
	return tx.Delete(&entity.Grade{}, "id = ?", gradeID).Error
}

// deleteClassTx 班级级联删除：提交、提醒记录、任务、成员，最后删除班级本身
func deleteClassTx(tx *gorm.DB, classID string) error {
	var taskIDs []string
	if err := tx.Model(&entity.Task{}).Where("class_id = ?", classID).Pluck("id", &taskIDs).Error; err != nil {
		return err
	}
	if len(taskIDs) > 0 {
		if err := tx.Delete(&entity.Submission{}, "task_id IN ?", taskIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.ReminderLog{}, "task_id IN ?", taskIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.Task{}, "id IN ?", taskIDs).Error; err != nil {
			return err
		}
	}

	var memberIDs []string
	if err := tx.Model(&entity.Member{}).Where("class_id = ?", classID).Pluck("id", &memberIDs).Error; err != nil {
		return err
	}
	if len(memberIDs) > 0 {
		if err := tx.Delete(&entity.Submission{}, "member_id IN ?", memberIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.ReminderLog{}, "member_id IN ?", memberIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.Member{}, "id IN ?", memberIDs).Error; err != nil {
			return err
		}
	}

	return tx.Delete(&entity.Class{}, "id = ?", classID).Error
}
