package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportWorkerReport 导出员工考勤报表
// GET /api/v1/workers/:id/report/export?start=&end=&scope=
func (h *ExportHandler) ExportWorkerReport(c *gin.Context) {
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

	buf, filename, err := h.exportSvc.ExportWorkerReport(c.Request.Context(), c.Param("id"), req.Start, req.End, policy)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, contentTypeXLSX, filename, buf.Bytes())
}

// ExportSiteCalendarICS 导出站点年度日历
// GET /api/v1/sites/:id/calendars/:year/ics
func (h *ExportHandler) ExportSiteCalendarICS(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	year, ok := parseIntParam(c, "year")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSiteCalendarICS(c.Request.Context(), siteID, year)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, contentTypeICS, filename, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidYear):
		response.BadRequest(c, 23001, "年份无效")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		handleAttendanceError(c, err)
	}
}
