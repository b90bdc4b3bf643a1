package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// OrganizationService 组织结构服务：学院、年级、班级三级管理
type OrganizationService struct {
	orgRepo *repository.OrganizationRepository
}

// NewOrganizationService 创建组织结构服务
func NewOrganizationService(orgRepo *repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo}
}

// ListColleges 获取学院列表
func (s *OrganizationService) ListColleges(ctx context.Context) ([]entity.College, error) {
	return s.orgRepo.ListColleges(ctx)
}

// CreateCollege 创建学院
func (s *OrganizationService) CreateCollege(ctx context.Context, name string) (*entity.College, error) {
	if name == "" {
		return nil, NewValidationError("学院名称不能为空")
	}
	now := time.Now()
	college := &entity.College{
		ID:        uuid.New().String()[:32],
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orgRepo.CreateCollege(ctx, college); err != nil {
		return nil, fmt.Errorf("create college: %w", err)
	}
	return college, nil
}

// UpdateCollege 更新学院名称
func (s *OrganizationService) UpdateCollege(ctx context.Context, id, name string) (*entity.College, error) {
	if name == "" {
		return nil, NewValidationError("学院名称不能为空")
	}
	college, err := s.orgRepo.FindCollegeByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("学院不存在")
		}
		return nil, fmt.Errorf("find college: %w", err)
	}
	college.Name = name
	college.UpdatedAt = time.Now()
	if err := s.orgRepo.UpdateCollege(ctx, college); err != nil {
		return nil, fmt.Errorf("update college: %w", err)
	}
	return college, nil
}

// DeleteCollege 删除学院，级联删除下属年级、班级、成员、任务及提交
func (s *OrganizationService) DeleteCollege(ctx context.Context, id string) error {
	if _, err := s.orgRepo.FindCollegeByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return NewNotFoundError("学院不存在")
		}
		return fmt.Errorf("find college: %w", err)
	}
	if err := s.orgRepo.DeleteCollege(ctx, id); err != nil {
		return fmt.Errorf("delete college: %w", err)
	}
	return nil
}

// ListGrades 获取年级列表，collegeID 为空时返回全部
func (s *OrganizationService) ListGrades(ctx context.Context, collegeID string) ([]entity.Grade, error) {
	return s.orgRepo.ListGrades(ctx, collegeID)
}

// CreateGrade 创建年级
func (s *OrganizationService) CreateGrade(ctx context.Context, collegeID, name string) (*entity.Grade, error) {
	if name == "" {
		return nil, NewValidationError("年级名称不能为空")
	}
	if _, err := s.orgRepo.FindCollegeByID(ctx, collegeID); err != nil {
		if repository.IsNotFound(err) {
			return nil, NewValidationError("学院不存在")
		}
		return nil, fmt.Errorf("find college: %w", err)
	}
	now := time.Now()
	grade := &entity.Grade{
		ID:        uuid.New().String()[:32],
		Name:      name,
		CollegeID: collegeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orgRepo.CreateGrade(ctx, grade); err != nil {
		return nil, fmt.Errorf("create grade: %w", err)
	}
	return grade, nil
}

// UpdateGrade 更新年级名称
func (s *OrganizationService) UpdateGrade(ctx context.Context, id, name string) (*entity.Grade, error) {
	if name == "" {
		return nil, NewValidationError("年级名称不能为空")
	}
	grade, err := s.orgRepo.FindGradeByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("年级不存在")
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	grade.Name = name
	grade.UpdatedAt = time.Now()
	if err := s.orgRepo.UpdateGrade(ctx, grade); err != nil {
		return nil, fmt.Errorf("update grade: %w", err)
	}
	return grade, nil
}

// DeleteGrade 删除年级及下属数据
func (s *OrganizationService) DeleteGrade(ctx context.Context, id string) error {
	if _, err := s.orgRepo.FindGradeByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return NewNotFoundError("年级不存在")
		}
		return fmt.Errorf("find grade: %w", err)
	}
	if err := s.orgRepo.DeleteGrade(ctx, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}

// ListClasses 获取班级列表，gradeID 为空时返回全部
func (s *OrganizationService) ListClasses(ctx context.Context, gradeID string) ([]entity.Class, error) {
	return s.orgRepo.ListClasses(ctx, gradeID)
}

// GetClass 获取班级详情
func (s *OrganizationService) GetClass(ctx context.Context, id string) (*entity.Class, error) {
	class, err := s.orgRepo.FindClassByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("班级不存在")
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return class, nil
}

// CreateClass 创建班级
func (s *OrganizationService) CreateClass(ctx context.Context, gradeID, name string) (*entity.Class, error) {
	if name == "" {
		return nil, NewValidationError("班级名称不能为空")
	}
	if _, err := s.orgRepo.FindGradeByID(ctx, gradeID); err != nil {
		if repository.IsNotFound(err) {
			return nil, NewValidationError("年级不存在")
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	now := time.Now()
	class := &entity.Class{
		ID:        uuid.New().String()[:32],
		Name:      name,
		GradeID:   gradeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orgRepo.CreateClass(ctx, class); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}
	return class, nil
}

// UpdateClass 更新班级名称
func (s *OrganizationService) UpdateClass(ctx context.Context, id, name string) (*entity.Class, error) {
	if name == "" {
		return nil, NewValidationError("班级名称不能为空")
	}
	class, err := s.orgRepo.FindClassByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("班级不存在")
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	class.Name = name
	class.UpdatedAt = time.Now()
	if err := s.orgRepo.UpdateClass(ctx, class); err != nil {
		return nil, fmt.Errorf("update class: %w", err)
	}
	return class, nil
}

// DeleteClass 删除班级及下属成员、任务和提交
func (s *OrganizationService) DeleteClass(ctx context.Context, id string) error {
	if _, err := s.orgRepo.FindClassByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return NewNotFoundError("班级不存在")
		}
		return fmt.Errorf("find class: %w", err)
	}
	if err := s.orgRepo.DeleteClass(ctx, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
