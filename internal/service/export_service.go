package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/repository"
)

// ExportService 导出服务：按成员打包提交内容、生成问卷和统计表格
type ExportService struct {
	taskService *TaskService
	memberRepo  *repository.MemberRepository
	subRepo     *repository.SubmissionRepository

	minioClient *minio.Client
	bucketName  string
	logger      *zap.Logger
}

// NewExportService 创建导出服务
func NewExportService(
	taskService *TaskService,
	memberRepo *repository.MemberRepository,
	subRepo *repository.SubmissionRepository,
	minioClient *minio.Client,
	bucketName string,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		taskService: taskService,
		memberRepo:  memberRepo,
		subRepo:     subRepo,
		minioClient: minioClient,
		bucketName:  bucketName,
		logger:      logger,
	}
}

// ExportPreviewEntry 命名预览条目
type ExportPreviewEntry struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Filename  string `json:"filename"`
}

// Preview 按命名模板预览每个成员导出后的文件名，format 为空时用任务配置。
// 管理员改命名格式前可以先看效果，不落任何文件
func (s *ExportService) Preview(ctx context.Context, taskID, format string) ([]ExportPreviewEntry, error) {
	task, err := s.taskService.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = task.NamingFormat
	}
	if err := ValidateNamingFormat(format); err != nil {
		return nil, err
	}
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	entries := make([]ExportPreviewEntry, 0, len(roster))
	for _, m := range roster {
		entries = append(entries, ExportPreviewEntry{
			StudentID: m.StudentID,
			Name:      m.Name,
			Filename:  SanitizeFilename(ApplyNamingFormat(format, &m, "")),
		})
	}
	return entries, nil
}

// ExportArchive 导出任务全部提交为 zip 压缩包。每个成员一个文件夹，
// 文件夹名按任务命名模板生成；文本和问卷提交分别落为文本文件，
// 压缩包根目录附未交名单
func (s *ExportService) ExportArchive(ctx context.Context, taskID string) (*bytes.Buffer, string, error) {
	task, err := s.taskService.Get(ctx, taskID)
	if err != nil {
		return nil, "", err
	}
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, "", fmt.Errorf("load roster: %w", err)
	}
	subs, err := s.subRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, "", fmt.Errorf("load submissions: %w", err)
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	byMember := groupByMember(subs)
	for _, m := range roster {
		memberSubs := byMember[m.ID]
		if len(memberSubs) == 0 {
			continue
		}
		folder := SanitizeFilename(ApplyNamingFormat(task.NamingFormat, &m, ""))
		used := make(map[string]bool)

		for _, sub := range memberSubs {
			switch sub.Type {
			case entity.CollectTypeFile, entity.CollectTypeImage:
				if err := s.addFileEntry(ctx, zw, task, &m, &sub, folder, used); err != nil {
					s.logger.Warn("导出文件失败，跳过该提交",
						zap.String("submission_id", sub.ID), zap.Error(err))
				}
			case entity.CollectTypeText:
				name := uniqueName(folder+"/文本.txt", used)
				if err := writeZipEntry(zw, name, []byte(sub.TextContent)); err != nil {
					return nil, "", fmt.Errorf("write text entry: %w", err)
				}
			case entity.CollectTypeQuestionnaire:
				if err := s.addQuestionnaireEntries(zw, task, &sub, folder, used); err != nil {
					return nil, "", err
				}
			}
		}
	}

	missing := unsubmittedMembers(task, roster, subs)
	if len(missing) > 0 {
		lines := make([]string, 0, len(missing)+1)
		lines = append(lines, fmt.Sprintf("未提交人数: %d", len(missing)))
		for _, m := range missing {
			lines = append(lines, fmt.Sprintf("%s %s", m.StudentID, m.Name))
		}
		if err := writeZipEntry(zw, "未交名单.txt", []byte(strings.Join(lines, "\n"))); err != nil {
			return nil, "", fmt.Errorf("write unsubmitted entry: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("close zip: %w", err)
	}

	filename := SanitizeFilename(task.Title) + ".zip"
	return buf, filename, nil
}

// addFileEntry 从对象存储读出文件写入压缩包，条目名按命名模板生成
func (s *ExportService) addFileEntry(ctx context.Context, zw *zip.Writer, task *entity.Task, m *entity.Member, sub *entity.Submission, folder string, used map[string]bool) error {
	if sub.StoredObject == "" {
		return fmt.Errorf("submission %s has no stored object", sub.ID)
	}
	if s.minioClient == nil {
		return fmt.Errorf("object storage unavailable")
	}

	object, err := s.minioClient.GetObject(ctx, s.bucketName, sub.StoredObject, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}
	defer object.Close()

	ext := strings.ToLower(filepath.Ext(sub.OriginalFilename))
	name := uniqueName(folder+"/"+ApplyNamingFormat(task.NamingFormat, m, ext), used)
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry: %w", err)
	}
	if _, err := io.Copy(w, object); err != nil {
		return fmt.Errorf("copy object: %w", err)
	}
	return nil
}

// addQuestionnaireEntries 问卷提交落两个文件：机器可读的 JSON 和按题目
// 顺序展开的纯文本
func (s *ExportService) addQuestionnaireEntries(zw *zip.Writer, task *entity.Task, sub *entity.Submission, folder string, used map[string]bool) error {
	jsonBytes, err := json.MarshalIndent(sub.Answers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	jsonName := uniqueName(folder+"/问卷.json", used)
	if err := writeZipEntry(zw, jsonName, jsonBytes); err != nil {
		return fmt.Errorf("write questionnaire json: %w", err)
	}

	txtName := uniqueName(folder+"/问卷.txt", used)
	if err := writeZipEntry(zw, txtName, []byte(formatAnswers(task.Questionnaire, sub.Answers))); err != nil {
		return fmt.Errorf("write questionnaire text: %w", err)
	}
	return nil
}

// ExportQuestionnaire 导出问卷答案为 Excel，一行一个已作答成员，
// 列为学号、姓名加全部题目
func (s *ExportService) ExportQuestionnaire(ctx context.Context, taskID string) (*bytes.Buffer, error) {
	task, err := s.taskService.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if len(task.Questionnaire) == 0 {
		return nil, NewValidationError("该任务未配置问卷")
	}
	roster, err := s.memberRepo.Roster(ctx, task.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	subs, err := s.subRepo.ListByTaskAndType(ctx, taskID, entity.CollectTypeQuestionnaire)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	// 每个成员取最近一次问卷提交
	latest := make(map[string]*entity.Submission)
	for i := range subs {
		latest[subs[i].MemberID] = &subs[i]
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"学号", "姓名"}
	for _, item := range task.Questionnaire {
		headers = append(headers, item.Title)
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, m := range roster {
		sub, ok := latest[m.ID]
		if !ok {
			continue
		}
		values := []string{m.StudentID, m.Name}
		for _, item := range task.Questionnaire {
			values = append(values, answerText(sub.Answers[item.ID]))
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf, nil
}

// ExportStatus 导出提交状态表：全班成员的已交/未交与提交数量
func (s *ExportService) ExportStatus(ctx context.Context, taskID string) (*bytes.Buffer, error) {
	statuses, err := s.taskService.MembersWithStatus(ctx, taskID, nil)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"学号", "姓名", "是否已交", "提交数量"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for i, st := range statuses {
		submitted := "未交"
		if st.HasSubmitted {
			submitted = "已交"
		}
		values := []interface{}{st.StudentID, st.Name, submitted, st.SubmissionCount}
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

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// formatAnswers 问卷答案纯文本形式，按题目配置顺序展开
func formatAnswers(config entity.QuestionnaireConfig, answers entity.AnswerMap) string {
	lines := make([]string, 0, len(config))
	for _, item := range config {
		lines = append(lines, fmt.Sprintf("%s: %s", item.Title, answerText(answers[item.ID])))
	}
	return strings.Join(lines, "\n")
}

// answerText 答案转为展示文本，多选用顿号连接
func answerText(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, "、")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, "、")
	}
	return fmt.Sprintf("%v", raw)
}
