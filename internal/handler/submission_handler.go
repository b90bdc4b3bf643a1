package handler

import (
	"fmt"
	"io"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/config"
	"github.com/huaiminqin/collection-self/internal/entity"
	"github.com/huaiminqin/collection-self/internal/service"
)

// SubmissionHandler 提交处理器，提交入口对成员开放、管理接口走认证
type SubmissionHandler struct {
	svc *service.SubmissionService
	cfg *config.Config
}

// NewSubmissionHandler 创建提交处理器
func NewSubmissionHandler(svc *service.SubmissionService, cfg *config.Config) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, cfg: cfg}
}

// Upload 提交文件或图片
func (h *SubmissionHandler) Upload(c *gin.Context) {
	taskID := c.PostForm("task_id")
	studentID := c.PostForm("student_id")
	if taskID == "" || studentID == "" {
		BadRequest(c, "task_id and student_id are required")
		return
	}

	submitType := entity.CollectType(c.DefaultPostForm("type", string(entity.CollectTypeFile)))

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "File is required: "+err.Error())
		return
	}
	defer file.Close()

	if h.cfg.Upload.MaxFileSize > 0 && header.Size > h.cfg.Upload.MaxFileSize {
		BadRequest(c, fmt.Sprintf("文件大小超过限制 %d 字节", h.cfg.Upload.MaxFileSize))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req := &service.SubmitFileRequest{
		TaskID:      taskID,
		StudentID:   studentID,
		Type:        submitType,
		Filename:    header.Filename,
		ContentType: contentType,
		FileSize:    header.Size,
		IsPrivate:   parseOptionalBool(c.PostForm("is_private")),
	}

	sub, err := h.svc.SubmitFile(c.Request.Context(), req, file)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, sub)
}

// SubmitText 提交文本
func (h *SubmissionHandler) SubmitText(c *gin.Context) {
	var req service.SubmitTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sub, err := h.svc.SubmitText(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, sub)
}

// SubmitQuestionnaire 提交问卷
func (h *SubmissionHandler) SubmitQuestionnaire(c *gin.Context) {
	var req service.SubmitQuestionnaireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	sub, err := h.svc.SubmitQuestionnaire(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, sub)
}

// List 管理端查询提交列表
func (h *SubmissionHandler) List(c *gin.Context) {
	offset, limit := GetPagination(c)
	subs, err := h.svc.List(c.Request.Context(), c.Query("task_id"), c.Query("member_id"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, subs)
}

// ListOwn 成员查询自己的提交
func (h *SubmissionHandler) ListOwn(c *gin.Context) {
	taskID := c.Query("task_id")
	studentID := c.Query("student_id")
	if taskID == "" || studentID == "" {
		BadRequest(c, "task_id and student_id are required")
		return
	}
	subs, err := h.svc.ListOwn(c.Request.Context(), taskID, studentID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, subs)
}

// ListPublic 查询任务的公开提交
func (h *SubmissionHandler) ListPublic(c *gin.Context) {
	taskID := c.Query("task_id")
	if taskID == "" {
		BadRequest(c, "task_id is required")
		return
	}
	subs, err := h.svc.ListPublic(c.Request.Context(), taskID, c.Query("exclude_student_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, subs)
}

// Get 获取提交详情
func (h *SubmissionHandler) Get(c *gin.Context) {
	sub, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, sub)
}

// Download 下载提交文件
func (h *SubmissionHandler) Download(c *gin.Context) {
	h.sendFile(c, "attachment")
}

// Preview 浏览器内预览提交文件
func (h *SubmissionHandler) Preview(c *gin.Context) {
	h.sendFile(c, "inline")
}

func (h *SubmissionHandler) sendFile(c *gin.Context, disposition string) {
	reader, filename, contentType, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	defer reader.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename*=UTF-8''%s", disposition, url.PathEscape(filename)))
	c.Header("Content-Type", contentType)
	io.Copy(c.Writer, reader)
}

// Delete 管理端删除提交
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// DeleteOwn 成员删除自己的提交
func (h *SubmissionHandler) DeleteOwn(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		BadRequest(c, "student_id is required")
		return
	}
	if err := h.svc.DeleteOwn(c.Request.Context(), c.Param("id"), studentID); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

func parseOptionalBool(v string) *bool {
	switch v {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}
