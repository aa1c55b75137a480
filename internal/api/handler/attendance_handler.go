package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

// AttendanceHandler 考勤报表 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// WorkerReport 员工逐日考勤报表
// GET /api/v1/workers/:id/report?start=&end=&scope=
func (h *AttendanceHandler) WorkerReport(c *gin.Context) {
	workerID := c.Param("id")
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "start、end 不能为空")
		return
	}
	policy, err := service.ParseScopePolicy(req.Scope)
	if err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "scope 无效")
		return
	}

	result, err := h.attendanceSvc.BuildWorkerReport(c.Request.Context(), workerID, req.Start, req.End, policy)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// SiteReport 站点汇总报表
// GET /api/v1/sites/:id/report?start=&end=
func (h *AttendanceHandler) SiteReport(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "start、end 不能为空")
		return
	}

	result, err := h.attendanceSvc.BuildSiteReport(c.Request.Context(), siteID, req.Start, req.End)
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// PresentToday 今日在场员工面板
// GET /api/v1/attendance/today
func (h *AttendanceHandler) PresentToday(c *gin.Context) {
	result, err := h.attendanceSvc.PresentToday(c.Request.Context())
	if err != nil {
		handleAttendanceError(c, err)
		return
	}

	response.OK(c, result)
}

// handleAttendanceError 考勤与导出共用的错误映射
func handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 21001, "员工不存在")
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 20001, "站点不存在")
	case errors.Is(err, service.ErrBadRange):
		response.ErrorWithDetails(c, 400, 21002, "日期范围无效", err.Error())
	case errors.Is(err, pkgerrors.ErrBadRequest):
		response.BadRequest(c, response.CodeInvalidParam, "参数无效")
	default:
		response.InternalError(c)
	}
}
