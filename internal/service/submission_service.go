package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// fileTypeGroups 文件类型分组，allowed_types 中的条目可以是组名或具体扩展名
var fileTypeGroups = map[string][]string{
	"image":    {".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg"},
	"video":    {".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv", ".webm"},
	"document": {".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".md"},
	"archive":  {".zip", ".rar", ".7z", ".tar", ".gz"},
	"text":     {".txt", ".md", ".csv"},
}

// SubmissionService 提交服务：四种收集类型的提交入口与访问控制
type SubmissionService struct {
	taskRepo   *repository.TaskRepository
	memberRepo *repository.MemberRepository
	subRepo    *repository.SubmissionRepository

	minioClient *minio.Client
	bucketName  string

	// 按 (task, member) 维度串行化提交，限额检查和写入之间不被并发打断
	locks sync.Map
}

// NewSubmissionService 创建提交服务
func NewSubmissionService(
	taskRepo *repository.TaskRepository,
	memberRepo *repository.MemberRepository,
	subRepo *repository.SubmissionRepository,
	minioClient *minio.Client,
	bucketName string,
) *SubmissionService {
	return &SubmissionService{
		taskRepo:    taskRepo,
		memberRepo:  memberRepo,
		subRepo:     subRepo,
		minioClient: minioClient,
		bucketName:  bucketName,
	}
}

// SubmitFileRequest 文件/图片提交请求
type SubmitFileRequest struct {
	TaskID      string
	StudentID   string
	Type        entity.CollectType
	Filename    string
	ContentType string
	FileSize    int64
	IsPrivate   *bool
}

// SubmitTextRequest 文本提交请求
type SubmitTextRequest struct {
	TaskID    string `json:"task_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
	IsPrivate *bool  `json:"is_private"`
}

// SubmitQuestionnaireRequest 问卷提交请求，答案按题目ID关联
type SubmitQuestionnaireRequest struct {
	TaskID    string           `json:"task_id" binding:"required"`
	StudentID string           `json:"student_id" binding:"required"`
	Answers   entity.AnswerMap `json:"answers" binding:"required"`
	IsPrivate *bool            `json:"is_private"`
}

// SubmitFile 提交文件或图片
func (s *SubmissionService) SubmitFile(ctx context.Context, req *SubmitFileRequest, reader io.Reader) (*entity.Submission, error) {
	if req.Type != entity.CollectTypeFile && req.Type != entity.CollectTypeImage {
		return nil, NewValidationError("无效的文件提交类型: %s", req.Type)
	}

	task, member, err := s.resolveTarget(ctx, req.TaskID, req.StudentID, req.Type)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if req.Type == entity.CollectTypeImage {
		if !extInGroup(ext, "image") {
			return nil, NewValidationError("图片提交仅支持图片格式，当前为 %s", ext)
		}
	} else if err := validateFileExt(task.AllowedTypes, ext); err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("tasks/%s/%s/%s%s", task.ID, member.ID, uuid.New().String()[:8], ext)
	if s.minioClient == nil {
		return nil, NewDependencyError("对象存储不可用")
	}
	if _, err := s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, req.FileSize, minio.PutObjectOptions{
		ContentType: req.ContentType,
	}); err != nil {
		return nil, NewDependencyError("文件上传失败: %v", err)
	}

	sub := &entity.Submission{
		Type:             req.Type,
		OriginalFilename: req.Filename,
		StoredObject:     objectName,
		ContentType:      req.ContentType,
		FileSize:         req.FileSize,
		IsPrivate:        resolveVisibility(task, req.IsPrivate),
	}
	if err := s.appendSubmission(ctx, task, member, sub); err != nil {
		// 记录未落库，清掉已上传的对象
		_ = s.minioClient.RemoveObject(context.Background(), s.bucketName, objectName, minio.RemoveObjectOptions{})
		return nil, err
	}
	return sub, nil
}

// SubmitText 提交文本内容
func (s *SubmissionService) SubmitText(ctx context.Context, req *SubmitTextRequest) (*entity.Submission, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, NewValidationError("文本内容不能为空")
	}

	task, member, err := s.resolveTarget(ctx, req.TaskID, req.StudentID, entity.CollectTypeText)
	if err != nil {
		return nil, err
	}

	sub := &entity.Submission{
		Type:        entity.CollectTypeText,
		TextContent: req.Content,
		IsPrivate:   resolveVisibility(task, req.IsPrivate),
	}
	if err := s.appendSubmission(ctx, task, member, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// SubmitQuestionnaire 提交问卷答案
func (s *SubmissionService) SubmitQuestionnaire(ctx context.Context, req *SubmitQuestionnaireRequest) (*entity.Submission, error) {
	task, member, err := s.resolveTarget(ctx, req.TaskID, req.StudentID, entity.CollectTypeQuestionnaire)
	if err != nil {
		return nil, err
	}

	if err := validateAnswers(task.Questionnaire, req.Answers); err != nil {
		return nil, err
	}

	sub := &entity.Submission{
		Type:      entity.CollectTypeQuestionnaire,
		Answers:   req.Answers,
		IsPrivate: resolveVisibility(task, req.IsPrivate),
	}
	if err := s.appendSubmission(ctx, task, member, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// List 查询提交列表
func (s *SubmissionService) List(ctx context.Context, taskID, memberID string, offset, limit int) ([]entity.Submission, error) {
	return s.subRepo.List(ctx, taskID, memberID, offset, limit)
}

// ListOwn 查询成员自己的提交
func (s *SubmissionService) ListOwn(ctx context.Context, taskID, studentID string) ([]entity.Submission, error) {
	member, err := s.findMember(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.subRepo.List(ctx, taskID, member.ID, 0, 0)
}

// ListPublic 查询任务下的公开提交，管理员设置为仅管理员可见的任务返回空
func (s *SubmissionService) ListPublic(ctx context.Context, taskID, excludeStudentID string) ([]entity.Submission, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("任务不存在")
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	if task.AdminOnlyVisible && !task.AllowUserSetVisibility {
		return []entity.Submission{}, nil
	}

	excludeMemberID := ""
	if excludeStudentID != "" {
		member, err := s.memberRepo.FindByStudentID(ctx, excludeStudentID)
		if err != nil {
			return nil, fmt.Errorf("find member: %w", err)
		}
		if member != nil {
			excludeMemberID = member.ID
		}
	}
	return s.subRepo.ListPublic(ctx, taskID, excludeMemberID)
}

// Get 获取提交详情
func (s *SubmissionService) Get(ctx context.Context, id string) (*entity.Submission, error) {
	sub, err := s.subRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, NewNotFoundError("提交记录不存在")
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return sub, nil
}

// Download 下载提交的文件，文件名按任务命名模板生成
func (s *SubmissionService) Download(ctx context.Context, id string) (io.ReadCloser, string, string, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	if sub.StoredObject == "" {
		return nil, "", "", NewValidationError("该提交不包含文件")
	}
	if s.minioClient == nil {
		return nil, "", "", NewDependencyError("对象存储不可用")
	}

	task, err := s.taskRepo.FindByID(ctx, sub.TaskID)
	if err != nil {
		return nil, "", "", fmt.Errorf("find task: %w", err)
	}
	member, err := s.memberRepo.FindByID(ctx, sub.MemberID)
	if err != nil {
		return nil, "", "", fmt.Errorf("find member: %w", err)
	}

	object, err := s.minioClient.GetObject(ctx, s.bucketName, sub.StoredObject, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", "", NewDependencyError("读取文件失败: %v", err)
	}

	filename := ApplyNamingFormat(task.NamingFormat, member, filepath.Ext(sub.OriginalFilename))
	return object, filename, sub.ContentType, nil
}

// Delete 删除提交记录并清理对象存储
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.subRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if sub.StoredObject != "" && s.minioClient != nil {
		_ = s.minioClient.RemoveObject(ctx, s.bucketName, sub.StoredObject, minio.RemoveObjectOptions{})
	}
	return nil
}

// DeleteOwn 成员删除自己的提交，任务关闭修改时拒绝
func (s *SubmissionService) DeleteOwn(ctx context.Context, id, studentID string) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	member, err := s.findMember(ctx, studentID)
	if err != nil {
		return err
	}
	if sub.MemberID != member.ID {
		return NewNotEligibleError("只能删除自己的提交")
	}
	task, err := s.taskRepo.FindByID(ctx, sub.TaskID)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}
	if !task.AllowModify {
		return NewNotEligibleError("该任务不允许修改提交")
	}
	return s.Delete(ctx, id)
}

// resolveTarget 提交前置检查：任务存在、成员在班、类型启用。
// 截止时间默认不阻止提交，任务显式开启强制截止时才拒绝
func (s *SubmissionService) resolveTarget(ctx context.Context, taskID, studentID string, t entity.CollectType) (*entity.Task, *entity.Member, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, NewNotFoundError("任务不存在")
		}
		return nil, nil, fmt.Errorf("find task: %w", err)
	}

	member, err := s.findMember(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if member.ClassID != task.ClassID {
		return nil, nil, NewNotEligibleError("不是该任务所属班级的成员")
	}

	if !task.CollectTypes.Enabled(t) {
		return nil, nil, NewNotEligibleError("该任务未启用 %s 类型的收集", t)
	}
	if task.DeadlineEnforced && task.DeadlinePassed(time.Now()) {
		return nil, nil, NewValidationError("任务已截止，不能再提交")
	}
	return task, member, nil
}

func (s *SubmissionService) findMember(ctx context.Context, studentID string) (*entity.Member, error) {
	member, err := s.memberRepo.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if member == nil {
		return nil, NewNotFoundError("学号 %s 不在花名册中", studentID)
	}
	return member, nil
}

// appendSubmission 在 (task, member) 锁和事务内做限额检查并追加记录。
// 事务内重新确认任务存在，避免与任务删除竞争后留下孤儿提交。
func (s *SubmissionService) appendSubmission(ctx context.Context, task *entity.Task, member *entity.Member, sub *entity.Submission) error {
	unlock := s.lock(task.ID, member.ID)
	defer unlock()

	return s.subRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fresh entity.Task
		if err := tx.First(&fresh, "id = ?", task.ID).Error; err != nil {
			if repository.IsNotFound(err) {
				return NewNotFoundError("任务不存在")
			}
			return fmt.Errorf("find task: %w", err)
		}

		var count int64
		if err := tx.Model(&entity.Submission{}).
			Where("task_id = ? AND member_id = ?", task.ID, member.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count submissions: %w", err)
		}
		if int(count) >= fresh.MaxUploads && !fresh.AllowModify {
			return NewLimitExceededError("已达到最大提交次数 %d 且该任务不允许修改", fresh.MaxUploads)
		}

		now := time.Now()
		sub.ID = uuid.New().String()[:32]
		sub.TaskID = task.ID
		sub.MemberID = member.ID
		sub.UploadCount = int(count) + 1
		sub.ItemIndex = int(count) + 1
		sub.CreatedAt = now
		sub.UpdatedAt = now
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		return nil
	})
}

func (s *SubmissionService) lock(taskID, memberID string) func() {
	key := taskID + "|" + memberID
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// resolveVisibility 计算提交可见性：任务不允许成员自选时强制使用任务设置
func resolveVisibility(task *entity.Task, requested *bool) bool {
	if !task.AllowUserSetVisibility {
		return task.AdminOnlyVisible
	}
	if requested != nil {
		return *requested
	}
	return task.AdminOnlyVisible
}

// validateFileExt 校验扩展名是否在任务允许范围内，未配置时不限制
func validateFileExt(allowed entity.StringList, ext string) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, ".") {
			if entry == ext {
				return nil
			}
			continue
		}
		if extInGroup(ext, entry) {
			return nil
		}
	}
	return NewValidationError("不支持的文件类型: %s", ext)
}

func extInGroup(ext, group string) bool {
	for _, e := range fileTypeGroups[group] {
		if e == ext {
			return true
		}
	}
	return false
}

// validateAnswers 按题目ID校验问卷答案：未知ID拒绝、必答题必须有答案、
// 选择题答案必须在选项内
func validateAnswers(config entity.QuestionnaireConfig, answers entity.AnswerMap) error {
	if len(config) == 0 {
		return NewValidationError("该任务未配置问卷")
	}

	for itemID := range answers {
		if item, _ := config.Find(itemID); item == nil {
			return NewValidationError("未知的题目ID: %s", itemID)
		}
	}

	for i := range config {
		item := &config[i]
		raw, ok := answers[item.ID]
		if !ok || answerEmpty(raw) {
			if item.Required {
				return NewValidationError("必答题未作答: %s", item.Title)
			}
			continue
		}

		switch item.Type {
		case entity.QuestionTypeRadio:
			v, ok := raw.(string)
			if !ok {
				return NewValidationError("单选题答案必须是字符串: %s", item.Title)
			}
			if !containsOption(item.Options, v) {
				return NewValidationError("单选题答案不在选项内: %s", item.Title)
			}
		case entity.QuestionTypeCheckbox:
			values, err := toStringSlice(raw)
			if err != nil {
				return NewValidationError("多选题答案必须是字符串数组: %s", item.Title)
			}
			seen := make(map[string]bool, len(values))
			for _, v := range values {
				if !containsOption(item.Options, v) {
					return NewValidationError("多选题答案不在选项内: %s", item.Title)
				}
				if seen[v] {
					return NewValidationError("多选题答案重复: %s", item.Title)
				}
				seen[v] = true
			}
		case entity.QuestionTypeText, entity.QuestionTypeImage, entity.QuestionTypeFile:
			if _, ok := raw.(string); !ok {
				return NewValidationError("题目答案必须是字符串: %s", item.Title)
			}
		}
	}
	return nil
}

func answerEmpty(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func toStringSlice(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("not a string slice")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a string slice")
}
