package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// memberSheetHeaders 成员表格列头，导入导出和模板共用
var memberSheetHeaders = []string{"学号", "姓名", "性别", "宿舍", "邮箱"}

// MemberService 班级成员服务：花名册维护与 Excel 批量导入导出
type MemberService struct {
	memberRepo *repository.MemberRepository
	orgRepo    *repository.OrganizationRepository
}

// NewMemberService 创建成员服务
func NewMemberService(memberRepo *repository.MemberRepository, orgRepo *repository.OrganizationRepository) *MemberService {
	return &MemberService{memberRepo: memberRepo, orgRepo: orgRepo}
}

// CreateMemberRequest 创建成员请求
type CreateMemberRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Gender    string `json:"gender"`
	Dormitory string `json:"dormitory"`
	Email     string `json:"email"`
	ClassID   string `json:"class_id" binding:"required"`
}

// UpdateMemberRequest 更新成员请求，nil 字段不修改
type UpdateMemberRequest struct {
	Name      *string `json:"name"`
	Gender    *string `json:"gender"`
	Dormitory *string `json:"dormitory"`
	Email     *string `json:"email"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// List 获取成员列表，按学号排序
func (s *MemberService) List(ctx context.Context, classID string, offset, limit int) ([]entity.Member, error) {
	return s.memberRepo.List(ctx, classID, offset, limit)
}

// Get 获取成员详情
func (s *MemberService) Get(ctx context.Context, id string) (*entity.Member, error) {
	member, err := s.memberRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("成员不存在")
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return member, nil
}

// FindByStudentID 按学号查找成员，提交入口用学号识别身份
func (s *MemberService) FindByStudentID(ctx context.Context, studentID string) (*entity.Member, error) {
	member, err := s.memberRepo.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("find member by student id: %w", err)
	}
	if member == nil {
		return nil, NewNotFoundError("学号 %s 不在花名册中", studentID)
	}
	return member, nil
}

// Create 创建成员，学号全局唯一
func (s *MemberService) Create(ctx context.Context, req *CreateMemberRequest) (*entity.Member, error) {
	if _, err := s.orgRepo.FindClassByID(ctx, req.ClassID); err != nil {
		if repository.IsNotFound(err) {
			return nil, NewValidationError("班级不存在")
		}
		return nil, fmt.Errorf("find class: %w", err)
	}

	existing, err := s.memberRepo.FindByStudentID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("check student id: %w", err)
	}
	if existing != nil {
		return nil, NewValidationError("学号 %s 已存在", req.StudentID)
	}

	now := time.Now()
	member := &entity.Member{
		ID:        uuid.New().String()[:32],
		StudentID: req.StudentID,
		Name:      req.Name,
		Gender:    req.Gender,
		Dormitory: req.Dormitory,
		Email:     req.Email,
		ClassID:   req.ClassID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	return member, nil
}

// Update 更新成员资料
func (s *MemberService) Update(ctx context.Context, id string, req *UpdateMemberRequest) (*entity.Member, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, NewValidationError("姓名不能为空")
		}
		member.Name = *req.Name
	}
	if req.Gender != nil {
		member.Gender = *req.Gender
	}
	if req.Dormitory != nil {
		member.Dormitory = *req.Dormitory
	}
	if req.Email != nil {
		member.Email = *req.Email
	}
	member.UpdatedAt = time.Now()
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return member, nil
}

// Delete 删除成员及其全部提交记录
func (s *MemberService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.memberRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

// ImportFromExcel 从 Excel 批量导入成员。已存在的学号更新资料并迁入当前班级，
// 单行错误跳过不中断
func (s *MemberService) ImportFromExcel(ctx context.Context, classID string, r io.Reader) (*ImportResult, error) {
	if _, err := s.orgRepo.FindClassByID(ctx, classID); err != nil {
		if repository.IsNotFound(err) {
			return nil, NewValidationError("班级不存在")
		}
		return nil, fmt.Errorf("find class: %w", err)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewValidationError("文件解析失败，请上传有效的Excel文件")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, NewValidationError("读取工作表失败")
	}
	if len(rows) < 2 {
		return nil, NewValidationError("表格中没有数据行")
	}

	result := &ImportResult{Errors: []string{}}
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		studentID := cell(0)
		name := cell(1)
		if studentID == "" && name == "" {
			continue
		}
		result.Total++
		if studentID == "" || name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: 学号和姓名不能为空", rowNum))
			continue
		}

		existing, err := s.memberRepo.FindByStudentID(ctx, studentID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", rowNum, err))
			continue
		}

		now := time.Now()
		if existing != nil {
			existing.Name = name
			existing.Gender = cell(2)
			existing.Dormitory = cell(3)
			existing.Email = cell(4)
			existing.ClassID = classID
			existing.UpdatedAt = now
			if err := s.memberRepo.Update(ctx, existing); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", rowNum, err))
				continue
			}
			result.Updated++
			continue
		}

		member := &entity.Member{
			ID:        uuid.New().String()[:32],
			StudentID: studentID,
			Name:      name,
			Gender:    cell(2),
			Dormitory: cell(3),
			Email:     cell(4),
			ClassID:   classID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.memberRepo.Create(ctx, member); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", rowNum, err))
			continue
		}
		result.Created++
	}
	return result, nil
}

// ExportToExcel 导出班级花名册为 Excel
func (s *MemberService) ExportToExcel(ctx context.Context, classID string) (*bytes.Buffer, error) {
	members, err := s.memberRepo.Roster(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for col, header := range memberSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	for i, m := range members {
		values := []string{m.StudentID, m.Name, m.Gender, m.Dormitory, m.Email}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf, nil
}

// Template 生成导入模板
func (s *MemberService) Template() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for col, header := range memberSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	example := []string{"20250001", "张三", "男", "1号楼101", "zhangsan@example.com"}
	for col, v := range example {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		f.SetCellValue(sheet, cell, v)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf, nil
}
