package handler

import (
	"fmt"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/service"
)

// MemberHandler 成员处理器
type MemberHandler struct {
	svc *service.MemberService
}

// NewMemberHandler 创建成员处理器
func NewMemberHandler(svc *service.MemberService) *MemberHandler {
	return &MemberHandler{svc: svc}
}

// List 获取成员列表
func (h *MemberHandler) List(c *gin.Context) {
	offset, limit := GetPagination(c)
	members, err := h.svc.List(c.Request.Context(), c.Query("class_id"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, members)
}

// Get 获取成员详情
func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, member)
}

// Lookup 按学号查找成员，提交页面用于身份确认
func (h *MemberHandler) Lookup(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		BadRequest(c, "student_id is required")
		return
	}
	member, err := h.svc.FindByStudentID(c.Request.Context(), studentID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, member)
}

// Create 创建成员
func (h *MemberHandler) Create(c *gin.Context) {
	var req service.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	member, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, member)
}

// Update 更新成员
func (h *MemberHandler) Update(c *gin.Context) {
	var req service.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	member, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, member)
}

// Delete 删除成员
func (h *MemberHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// Import 从 Excel 批量导入成员
func (h *MemberHandler) Import(c *gin.Context) {
	classID := c.PostForm("class_id")
	if classID == "" {
		BadRequest(c, "class_id is required")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "File is required: "+err.Error())
		return
	}
	defer file.Close()

	result, err := h.svc.ImportFromExcel(c.Request.Context(), classID, file)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// Export 导出班级花名册
func (h *MemberHandler) Export(c *gin.Context) {
	classID := c.Query("class_id")
	if classID == "" {
		BadRequest(c, "class_id is required")
		return
	}

	buf, err := h.svc.ExportToExcel(c.Request.Context(), classID)
	if err != nil {
		HandleError(c, err)
		return
	}
	sendExcel(c, buf.Bytes(), "成员名单.xlsx")
}

// Template 下载导入模板
func (h *MemberHandler) Template(c *gin.Context) {
	buf, err := h.svc.Template()
	if err != nil {
		HandleError(c, err)
		return
	}
	sendExcel(c, buf.Bytes(), "成员导入模板.xlsx")
}

// sendExcel 以附件形式下发表格，中文文件名走 RFC 5987 编码
func sendExcel(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
