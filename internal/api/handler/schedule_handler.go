package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

// ScheduleHandler 站点排班 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Resolve 解析站点某天的排班
// GET /api/v1/sites/:id/schedule?date=YYYY-MM-DD
func (h *ScheduleHandler) Resolve(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveScheduleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "date 不能为空")
		return
	}

	result, err := h.scheduleSvc.Resolve(c.Request.Context(), siteID, req.Date)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// GetBaseSchedule 获取站点基础排班
// GET /api/v1/sites/:id/base-schedule
func (h *ScheduleHandler) GetBaseSchedule(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	result, err := h.scheduleSvc.GetBaseSchedule(c.Request.Context(), siteID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// SetBaseSchedule 设置站点基础排班
// PUT /api/v1/sites/:id/base-schedule
func (h *ScheduleHandler) SetBaseSchedule(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var req dto.SetBaseScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.SetBaseSchedule(c.Request.Context(), siteID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// PutDayException 写入单日例外
// PUT /api/v1/sites/:id/day-exceptions
func (h *ScheduleHandler) PutDayException(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var req dto.PutDayExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.PutDayException(c.Request.Context(), siteID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// AddRangeException 新增区间例外
// POST /api/v1/sites/:id/range-exceptions
func (h *ScheduleHandler) AddRangeException(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var req dto.AddRangeExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.AddRangeException(c.Request.Context(), siteID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, result)
}

// handleScheduleError 统一处理排班模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 20001, "站点不存在")
	case errors.Is(err, service.ErrBaseScheduleNotFound):
		response.NotFound(c, 20002, "站点尚未设置基础排班")
	case errors.Is(err, pkgerrors.ErrBadRequest):
		response.ErrorWithDetails(c, 400, 20003, "排班参数无效", err.Error())
	default:
		response.InternalError(c)
	}
}
