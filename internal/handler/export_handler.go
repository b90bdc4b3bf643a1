package handler

import (
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/service"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	svc *service.ExportService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Preview 预览导出命名效果，?naming_format= 可临时指定模板
func (h *ExportHandler) Preview(c *gin.Context) {
	entries, err := h.svc.Preview(c.Request.Context(), c.Param("id"), c.Query("naming_format"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, entries)
}

// Archive 导出任务全部提交为 zip
func (h *ExportHandler) Archive(c *gin.Context) {
	buf, filename, err := h.svc.ExportArchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	c.Data(200, "application/zip", buf.Bytes())
}

// Questionnaire 导出问卷答案表格
func (h *ExportHandler) Questionnaire(c *gin.Context) {
	buf, err := h.svc.ExportQuestionnaire(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	sendExcel(c, buf.Bytes(), "问卷结果.xlsx")
}

// Status 导出提交状态表格
func (h *ExportHandler) Status(c *gin.Context) {
	buf, err := h.svc.ExportStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	sendExcel(c, buf.Bytes(), "提交情况.xlsx")
}
