package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

// CalendarHandler 站点 / 员工日历 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// GetSiteCalendar 站点年度日历
// GET /api/v1/sites/:id/calendars/:year
func (h *CalendarHandler) GetSiteCalendar(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	year, ok := parseIntParam(c, "year")
	if !ok {
		return
	}

	result, err := h.calendarSvc.GetSiteCalendar(c.Request.Context(), siteID, year)
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportSiteCalendarICS 上传 .ics 文件导入站点节假日
// POST /api/v1/sites/:id/calendars/:year/ics (multipart, 字段 file)
func (h *CalendarHandler) ImportSiteCalendarICS(c *gin.Context) {
	siteID, ok := parseIntParam(c, "id")
	if !ok {
		return
	}
	year, ok := parseIntParam(c, "year")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "请上传 .ics 文件")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "无法读取上传文件")
		return
	}
	defer file.Close()

	result, err := h.calendarSvc.ImportSiteCalendarICS(c.Request.Context(), siteID, year, file, actor)
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}

	response.OK(c, result)
}

// GetWorkerCalendar 员工年度日历
// GET /api/v1/workers/:id/calendars/:year
func (h *CalendarHandler) GetWorkerCalendar(c *gin.Context) {
	year, ok := parseIntParam(c, "year")
	if !ok {
		return
	}

	result, err := h.calendarSvc.GetWorkerCalendar(c.Request.Context(), c.Param("id"), year)
	if err != nil {
		h.handleCalendarError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *CalendarHandler) handleCalendarError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidYear):
		response.BadRequest(c, 23001, "年份无效")
	case errors.Is(err, service.ErrICSParse):
		response.BadRequest(c, 23002, "ICS 文件无效")
	case errors.Is(err, service.ErrICSEmptyImport):
		response.BadRequest(c, 23003, "ICS 文件中没有该年份的日期")
	case errors.Is(err, service.ErrBatchBusy):
		response.Conflict(c, 22003, "日历正被其他操作占用，请稍后重试")
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 20001, "站点不存在")
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 21001, "员工不存在")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "服务器内部错误")
	}
}
