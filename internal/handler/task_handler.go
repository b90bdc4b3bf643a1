package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/huaiminqin/collection-self/internal/service"
)

// TaskHandler 任务处理器，统计和提醒也挂在任务路由下
type TaskHandler struct {
	svc         *service.TaskService
	reminderSvc *service.ReminderService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(svc *service.TaskService, reminderSvc *service.ReminderService) *TaskHandler {
	return &TaskHandler{svc: svc, reminderSvc: reminderSvc}
}

// List 获取任务列表
func (h *TaskHandler) List(c *gin.Context) {
	offset, limit := GetPagination(c)
	tasks, err := h.svc.List(c.Request.Context(), c.Query("class_id"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, tasks)
}

// Get 获取任务详情
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, task)
}

// Create 创建任务
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	task, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, task)
}

// Update 更新任务
func (h *TaskHandler) Update(c *gin.Context) {
	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	task, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, task)
}

// Delete 删除任务
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// Stats 获取任务统计
func (h *TaskHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, stats)
}

// Members 获取任务成员及提交状态，submitted 参数可按已交/未交过滤
func (h *TaskHandler) Members(c *gin.Context) {
	var submitted *bool
	switch c.Query("submitted") {
	case "true":
		v := true
		submitted = &v
	case "false":
		v := false
		submitted = &v
	}

	members, err := h.svc.MembersWithStatus(c.Request.Context(), c.Param("id"), submitted)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, members)
}

// Unsubmitted 获取未交名单
func (h *TaskHandler) Unsubmitted(c *gin.Context) {
	result, err := h.svc.Unsubmitted(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// Remind 手动触发提醒发送
func (h *TaskHandler) Remind(c *gin.Context) {
	result, err := h.reminderSvc.Remind(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// ReminderLogs 获取提醒发送记录
func (h *TaskHandler) ReminderLogs(c *gin.Context) {
	offset, limit := GetPagination(c)
	logs, err := h.reminderSvc.Logs(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, logs)
}
