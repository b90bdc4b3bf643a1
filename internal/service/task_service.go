package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// TaskService 收集任务服务：任务生命周期、统计、未交名单
type TaskService struct {
	taskRepo   *repository.TaskRepository
	memberRepo *repository.MemberRepository
	subRepo    *repository.SubmissionRepository
	orgRepo    *repository.OrganizationRepository
}

// NewTaskService 创建任务服务
func NewTaskService(
	taskRepo *repository.TaskRepository,
	memberRepo *repository.MemberRepository,
	subRepo *repository.SubmissionRepository,
	orgRepo *repository.OrganizationRepository,
) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		memberRepo: memberRepo,
		subRepo:    subRepo,
		orgRepo:    orgRepo,
	}
}

// QuestionnaireItemInput 问卷题目入参，ID 由服务端分配
type QuestionnaireItemInput struct {
	Type     entity.QuestionType `json:"type"`
	Title    string              `json:"title"`
	Options  []string            `json:"options"`
	Required bool                `json:"required"`
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title                  string                   `json:"title" binding:"required"`
	Description            string                   `json:"description"`
	ClassID                string                   `json:"class_id" binding:"required"`
	CollectTypes           entity.CollectTypes      `json:"collect_types"`
	ItemsPerPerson         int                      `json:"items_per_person"`
	AllowedTypes           []string                 `json:"allowed_types"`
	Questionnaire          []QuestionnaireItemInput `json:"questionnaire_config"`
	Deadline               *time.Time               `json:"deadline"`
	DeadlineEnforced       bool                     `json:"deadline_enforced"`
	MaxUploads             int                      `json:"max_uploads"`
	AllowModify            *bool                    `json:"allow_modify"`
	AdminOnlyVisible       bool                     `json:"admin_only_visible"`
	AllowUserSetVisibility *bool                    `json:"allow_user_set_visibility"`
	NamingFormat           string                   `json:"naming_format"`
	RemindBeforeHours      int                      `json:"remind_before_hours"`
	AutoRemindEnabled      bool                     `json:"auto_remind_enabled"`
}

// UpdateTaskRequest 更新任务请求，nil 字段不修改
type UpdateTaskRequest struct {
	Title                  *string                  `json:"title"`
	Description            *string                  `json:"description"`
	CollectTypes           *entity.CollectTypes     `json:"collect_types"`
	ItemsPerPerson         *int                     `json:"items_per_person"`
	AllowedTypes           []string                 `json:"allowed_types"`
	Questionnaire          []QuestionnaireItemInput `json:"questionnaire_config"`
	Deadline               *time.Time               `json:"deadline"`
	DeadlineEnforced       *bool                    `json:"deadline_enforced"`
	MaxUploads             *int                     `json:"max_uploads"`
	AllowModify            *bool                    `json:"allow_modify"`
	AdminOnlyVisible       *bool                    `json:"admin_only_visible"`
	AllowUserSetVisibility *bool                    `json:"allow_user_set_visibility"`
	NamingFormat           *string                  `json:"naming_format"`
	RemindBeforeHours      *int                     `json:"remind_before_hours"`
	AutoRemindEnabled      *bool                    `json:"auto_remind_enabled"`
}

// TaskStats 任务统计
type TaskStats struct {
	TaskID            string  `json:"task_id"`
	TotalMembers      int     `json:"total_members"`
	SubmittedCount    int     `json:"submitted_count"`
	NotSubmittedCount int     `json:"not_submitted_count"`
	ProgressPercent   float64 `json:"progress_percent"`
	Overdue           bool    `json:"overdue"`
}

// MemberStatus 成员及其提交状态
type MemberStatus struct {
	entity.Member
	HasSubmitted    bool `json:"has_submitted"`
	SubmissionCount int  `json:"submission_count"`
}

// UnsubmittedBrief 未交名单中的成员摘要
type UnsubmittedBrief struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
}

// UnsubmittedResult 未交名单，成员按花名册顺序排列
type UnsubmittedResult struct {
	Count     int                `json:"count"`
	Members   []UnsubmittedBrief `json:"members"`
	NamesText string             `json:"names_text"`
}

// List 获取任务列表
func (s *TaskService) List(ctx context.Context, classID string, offset, limit int) ([]entity.Task, error) {
	return s.taskRepo.List(ctx, classID, offset, limit)
}

// Get 获取任务详情
func (s *TaskService) Get(ctx context.Context, id string) (*entity.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("任务不存在")
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

// Create 创建任务
func (s *TaskService) Create(ctx context.Context, req *CreateTaskRequest) (*entity.Task, error) {
	if _, err := s.orgRepo.FindClassByID(ctx, req.ClassID); err != nil {
		if repository.IsNotFound(err) {
			return nil, NewValidationError("班级不存在")
		}
		return nil, fmt.Errorf("find class: %w", err)
	}

	if !req.CollectTypes.Any() {
		return nil, NewValidationError("至少需要启用一种收集类型")
	}

	itemsPerPerson := req.ItemsPerPerson
	if itemsPerPerson == 0 {
		itemsPerPerson = 1
	}
	if itemsPerPerson < 1 {
		return nil, NewValidationError("每人提交项数必须大于0")
	}

	maxUploads := req.MaxUploads
	if maxUploads == 0 {
		maxUploads = 1
	}
	if maxUploads < 1 {
		return nil, NewValidationError("最大上传次数必须大于0")
	}

	var questionnaire entity.QuestionnaireConfig
	if req.CollectTypes.Questionnaire {
		var err error
		questionnaire, err = buildQuestionnaire(req.Questionnaire)
		if err != nil {
			return nil, err
		}
	}

	namingFormat := req.NamingFormat
	if namingFormat == "" {
		namingFormat = "{student_id}_{name}"
	}
	if err := ValidateNamingFormat(namingFormat); err != nil {
		return nil, err
	}

	remindBefore := req.RemindBeforeHours
	if remindBefore == 0 {
		remindBefore = 24
	}

	allowModify := true
	if req.AllowModify != nil {
		allowModify = *req.AllowModify
	}
	allowUserVisibility := true
	if req.AllowUserSetVisibility != nil {
		allowUserVisibility = *req.AllowUserSetVisibility
	}

	now := time.Now()
	task := &entity.Task{
		ID:                     uuid.New().String()[:32],
		Title:                  req.Title,
		Description:            req.Description,
		ClassID:                req.ClassID,
		CollectTypes:           req.CollectTypes,
		ItemsPerPerson:         itemsPerPerson,
		AllowedTypes:           entity.StringList(req.AllowedTypes),
		Questionnaire:          questionnaire,
		Deadline:               req.Deadline,
		DeadlineEnforced:       req.DeadlineEnforced,
		MaxUploads:             maxUploads,
		AllowModify:            allowModify,
		AdminOnlyVisible:       req.AdminOnlyVisible,
		AllowUserSetVisibility: allowUserVisibility,
		NamingFormat:           namingFormat,
		RemindBeforeHours:      remindBefore,
		AutoRemindEnabled:      req.AutoRemindEnabled,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Update 更新任务可变字段。收集类型可以收窄：已存在的该类型提交保留不删，
// 但之后的统计只认当前启用的类型
func (s *TaskService) Update(ctx context.Context, id string, req *UpdateTaskRequest) (*entity.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.CollectTypes != nil {
		if !req.CollectTypes.Any() {
			return nil, NewValidationError("至少需要启用一种收集类型")
		}
		task.CollectTypes = *req.CollectTypes
	}
	if req.ItemsPerPerson != nil {
		if *req.ItemsPerPerson < 1 {
			return nil, NewValidationError("每人提交项数必须大于0")
		}
		task.ItemsPerPerson = *req.ItemsPerPerson
	}
	if req.AllowedTypes != nil {
		task.AllowedTypes = entity.StringList(req.AllowedTypes)
	}
	if req.Questionnaire != nil {
		questionnaire, err := buildQuestionnaire(req.Questionnaire)
		if err != nil {
			return nil, err
		}
		task.Questionnaire = questionnaire
	}
	if req.Deadline != nil {
		task.Deadline = req.Deadline
	}
	if req.DeadlineEnforced != nil {
		task.DeadlineEnforced = *req.DeadlineEnforced
	}
	if req.MaxUploads != nil {
		if *req.MaxUploads < 1 {
			return nil, NewValidationError("最大上传次数必须大于0")
		}
		task.MaxUploads = *req.MaxUploads
	}
	if req.AllowModify != nil {
		task.AllowModify = *req.AllowModify
	}
	if req.AdminOnlyVisible != nil {
		task.AdminOnlyVisible = *req.AdminOnlyVisible
	}
	if req.AllowUserSetVisibility != nil {
		task.AllowUserSetVisibility = *req.AllowUserSetVisibility
	}
	if req.NamingFormat != nil {
		if err := ValidateNamingFormat(*req.NamingFormat); err != nil {
			return nil, err
		}
		task.NamingFormat = *req.NamingFormat
	}
	if req.RemindBeforeHours != nil {
		task.RemindBeforeHours = *req.RemindBeforeHours
	}
	if req.AutoRemindEnabled != nil {
		task.AutoRemindEnabled = *req.AutoRemindEnabled
	}

	// 补丁应用完再检查整体一致性，防止只开问卷开关却没有题目
	if task.CollectTypes.Questionnaire && len(task.Questionnaire) == 0 {
		return nil, NewValidationError("启用问卷收集时必须配置问卷题目")
	}

	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete 删除任务并级联删除全部提交
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// Stats 获取任务统计，每次调用都基于当前数据重新计算
func (s *TaskService) Stats(ctx context.Context, taskID string) (*TaskStats, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	subs, err := s.subRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return computeStats(task, roster, subs, time.Now()), nil
}

// MembersWithStatus 获取任务成员及提交状态，submitted 为 nil 时不过滤
func (s *TaskService) MembersWithStatus(ctx context.Context, taskID string, submitted *bool) ([]MemberStatus, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	subs, err := s.subRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	byMember := groupByMember(subs)
	result := make([]MemberStatus, 0, len(roster))
	for _, m := range roster {
		memberSubs := byMember[m.ID]
		has := hasSubmitted(task, memberSubs)
		if submitted != nil && has != *submitted {
			continue
		}
		result = append(result, MemberStatus{
			Member:          m,
			HasSubmitted:    has,
			SubmissionCount: len(memberSubs),
		})
	}
	return result, nil
}

// Unsubmitted 获取未交名单，保持花名册顺序，名单文本按行拼接
func (s *TaskService) Unsubmitted(ctx context.Context, taskID string) (*UnsubmittedResult, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	subs, err := s.subRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	missing := unsubmittedMembers(task, roster, subs)
	names := make([]string, 0, len(missing))
	briefs := make([]UnsubmittedBrief, 0, len(missing))
	for _, m := range missing {
		names = append(names, m.Name)
		briefs = append(briefs, UnsubmittedBrief{ID: m.ID, Name: m.Name, StudentID: m.StudentID})
	}

	return &UnsubmittedResult{
		Count:     len(missing),
		Members:   briefs,
		NamesText: strings.Join(names, "\n"),
	}, nil
}

// UnsubmittedMembers 获取未交成员完整记录，提醒发送使用
func (s *TaskService) UnsubmittedMembers(ctx context.Context, task *entity.Task) ([]entity.Member, error) {
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	subs, err := s.subRepo.ListByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return unsubmittedMembers(task, roster, subs), nil
}

// buildQuestionnaire 校验问卷配置并为每道题分配稳定ID
func buildQuestionnaire(items []QuestionnaireItemInput) (entity.QuestionnaireConfig, error) {
	if len(items) == 0 {
		return nil, NewValidationError("问卷收集已启用但未配置题目")
	}
	config := make(entity.QuestionnaireConfig, 0, len(items))
	for i, item := range items {
		if !item.Type.Valid() {
			return nil, NewValidationError("第%d题类型无效: %s", i+1, item.Type)
		}
		if strings.TrimSpace(item.Title) == "" {
			return nil, NewValidationError("第%d题标题不能为空", i+1)
		}
		if item.Type == entity.QuestionTypeRadio || item.Type == entity.QuestionTypeCheckbox {
			if len(item.Options) == 0 {
				return nil, NewValidationError("第%d题为选择题，选项不能为空", i+1)
			}
		}
		config = append(config, entity.QuestionnaireItem{
			ID:       uuid.New().String()[:8],
			Type:     item.Type,
			Title:    item.Title,
			Options:  item.Options,
			Required: item.Required,
		})
	}
	return config, nil
}

// groupByMember 按成员分组提交记录
func groupByMember(subs []entity.Submission) map[string][]entity.Submission {
	byMember := make(map[string][]entity.Submission)
	for _, s := range subs {
		byMember[s.MemberID] = append(byMember[s.MemberID], s)
	}
	return byMember
}

// hasSubmitted 成员是否完成任务：当前启用类型下的提交数达到每人提交项数
func hasSubmitted(task *entity.Task, subs []entity.Submission) bool {
	required := task.ItemsPerPerson
	if required < 1 {
		required = 1
	}
	eligible := 0
	for _, s := range subs {
		if task.CollectTypes.Enabled(s.Type) {
			eligible++
			if eligible >= required {
				return true
			}
		}
	}
	return false
}

// computeStats 统计已交/未交人数与进度，花名册为空时进度为0
func computeStats(task *entity.Task, roster []entity.Member, subs []entity.Submission, now time.Time) *TaskStats {
	byMember := groupByMember(subs)
	submitted := 0
	for _, m := range roster {
		if hasSubmitted(task, byMember[m.ID]) {
			submitted++
		}
	}

	total := len(roster)
	progress := 0.0
	if total > 0 {
		progress = math.Round(float64(submitted)/float64(total)*1000) / 10
	}

	return &TaskStats{
		TaskID:            task.ID,
		TotalMembers:      total,
		SubmittedCount:    submitted,
		NotSubmittedCount: total - submitted,
		ProgressPercent:   progress,
		Overdue:           task.DeadlinePassed(now),
	}
}

// unsubmittedMembers 没有完成任务的成员，保持花名册顺序
func unsubmittedMembers(task *entity.Task, roster []entity.Member, subs []entity.Submission) []entity.Member {
	byMember := groupByMember(subs)
	missing := make([]entity.Member, 0)
	for _, m := range roster {
		if !hasSubmitted(task, byMember[m.ID]) {
			missing = append(missing, m)
		}
	}
	return missing
}
