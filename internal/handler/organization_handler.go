package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/service"
)

// OrganizationHandler 组织结构处理器
type OrganizationHandler struct {
	svc *service.OrganizationService
}

// NewOrganizationHandler 创建组织结构处理器
func NewOrganizationHandler(svc *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

// NameRequest 只需要名称的创建/更新请求
type NameRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateGradeRequest 创建年级请求
type CreateGradeRequest struct {
	Name      string `json:"name" binding:"required"`
	CollegeID string `json:"college_id" binding:"required"`
}

// CreateClassRequest 创建班级请求
type CreateClassRequest struct {
	Name    string `json:"name" binding:"required"`
	GradeID string `json:"grade_id" binding:"required"`
}

// ListColleges 获取学院列表
func (h *OrganizationHandler) ListColleges(c *gin.Context) {
	colleges, err := h.svc.ListColleges(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, colleges)
}

// CreateCollege 创建学院
func (h *OrganizationHandler) CreateCollege(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	college, err := h.svc.CreateCollege(c.Request.Context(), req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, college)
}

// UpdateCollege 更新学院
func (h *OrganizationHandler) UpdateCollege(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	college, err := h.svc.UpdateCollege(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, college)
}

// DeleteCollege 删除学院
func (h *OrganizationHandler) DeleteCollege(c *gin.Context) {
	if err := h.svc.DeleteCollege(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// ListGrades 获取年级列表
func (h *OrganizationHandler) ListGrades(c *gin.Context) {
	grades, err := h.svc.ListGrades(c.Request.Context(), c.Query("college_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, grades)
}

// CreateGrade 创建年级
func (h *OrganizationHandler) CreateGrade(c *gin.Context) {
	var req CreateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	grade, err := h.svc.CreateGrade(c.Request.Context(), req.CollegeID, req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, grade)
}

// UpdateGrade 更新年级
func (h *OrganizationHandler) UpdateGrade(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	grade, err := h.svc.UpdateGrade(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, grade)
}

// DeleteGrade 删除年级
func (h *OrganizationHandler) DeleteGrade(c *gin.Context) {
	if err := h.svc.DeleteGrade(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// ListClasses 获取班级列表
func (h *OrganizationHandler) ListClasses(c *gin.Context) {
	classes, err := h.svc.ListClasses(c.Request.Context(), c.Query("grade_id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, classes)
}

// GetClass 获取班级详情
func (h *OrganizationHandler) GetClass(c *gin.Context) {
	class, err := h.svc.GetClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, class)
}

// CreateClass 创建班级
func (h *OrganizationHandler) CreateClass(c *gin.Context) {
	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	class, err := h.svc.CreateClass(c.Request.Context(), req.GradeID, req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, class)
}

// UpdateClass 更新班级
func (h *OrganizationHandler) UpdateClass(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	class, err := h.svc.UpdateClass(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, class)
}

// DeleteClass 删除班级
func (h *OrganizationHandler) DeleteClass(c *gin.Context) {
	if err := h.svc.DeleteClass(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
