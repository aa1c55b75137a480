package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

// CalendarBatchHandler 批量日历助手 HTTP 处理器
type CalendarBatchHandler struct {
	batchSvc service.CalendarBatchService
}

// NewCalendarBatchHandler 创建 CalendarBatchHandler
func NewCalendarBatchHandler(batchSvc service.CalendarBatchService) *CalendarBatchHandler {
	return &CalendarBatchHandler{batchSvc: batchSvc}
}

// Preview 预览批量写入（只读）
// POST /api/v1/calendar-batches/preview
func (h *CalendarBatchHandler) Preview(c *gin.Context) {
	var req dto.CalendarBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.batchSvc.Preview(c.Request.Context(), &req)
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.OK(c, result)
}

// Apply 执行批量写入
// POST /api/v1/calendar-batches
func (h *CalendarBatchHandler) Apply(c *gin.Context) {
	var req dto.CalendarBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.batchSvc.Apply(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.Created(c, result)
}

// Undo 撤销某个批次写入的全部特殊日
// DELETE /api/v1/calendar-batches/:batchId
func (h *CalendarBatchHandler) Undo(c *gin.Context) {
	result, err := h.batchSvc.Undo(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.OK(c, result)
}

// handleBatchError 统一处理批量日历业务错误
func (h *CalendarBatchHandler) handleBatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBatchWindowTooLarge):
		response.ErrorWithDetails(c, 400, 22001, "日期跨度超过上限", err.Error())
	case errors.Is(err, service.ErrBatchInvalidRange):
		response.ErrorWithDetails(c, 400, 22002, "日期范围无效", err.Error())
	case errors.Is(err, service.ErrBatchInvalidID):
		response.BadRequest(c, 22004, "批次 ID 无效")
	case errors.Is(err, service.ErrBatchBusy):
		response.Conflict(c, 22003, "日历正被其他批量操作占用，请稍后重试")
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 20001, "站点不存在")
	case errors.Is(err, pkgerrors.ErrBadRequest):
		response.BadRequest(c, response.CodeInvalidParam, "参数无效")
	default:
		response.InternalError(c)
	}
}
