package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response
type ExportService interface {
	// ExportWorkerReport 员工考勤报表导出为 Excel
	ExportWorkerReport(ctx context.Context, workerID, from, to string, policy ScopePolicy) (*bytes.Buffer, string, error)
	// ExportSiteCalendarICS 站点年度日历导出为 iCalendar
	ExportSiteCalendarICS(ctx context.Context, siteID, year int) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo       *repository.Repository
	attendance AttendanceService
	clock      clock.Clock
	logger     *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, attendance AttendanceService, clk clock.Clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, attendance: attendance, clock: clk, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportWorkerReport
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：员工姓名 / 考勤编号 / 日期范围
//   - 第 2 行表头：日期 | 进场 | 离场 | 状态 | 站点事件 | 员工事件 | 打卡站点
//   - 之后每天一行

var reportHeaders = []string{"Fecha", "Entrada", "Salida", "Estado", "Evento sede", "Evento trabajador", "Sedes"}

func (s *exportService) ExportWorkerReport(ctx context.Context, workerID, from, to string, policy ScopePolicy) (*bytes.Buffer, string, error) {
	report, err := s.attendance.BuildWorkerReport(ctx, workerID, from, to, policy)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Asistencia"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 10)
	f.SetColWidth(sheetName, "D", "D", 22)
	f.SetColWidth(sheetName, "E", "F", 18)
	f.SetColWidth(sheetName, "G", "G", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s) %s ~ %s", report.Name, report.CheckerID, from, to))
	f.MergeCell(sheetName, "A1", fmt.Sprintf("%s1", colName(len(reportHeaders)-1)))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range reportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(reportHeaders)-1), 2), headerStyle)

	// 数据行
	for i, day := range report.Days {
		row := 3 + i
		values := []interface{}{day.Date, day.Entrada, day.Salida, day.Status, day.SiteEvent, day.WorkerEvent, joinSites(day.Sites)}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("asistencia_%s_%s_%s.xlsx", report.CheckerID, from, to)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportSiteCalendarICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSiteCalendarICS(ctx context.Context, siteID, year int) (*bytes.Buffer, string, error) {
	if !validYear(year) {
		return nil, "", ErrInvalidYear
	}
	site, err := s.repo.Site.GetByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, "", err
	}

	cals, err := s.repo.Calendar.ListBySiteAndYears(ctx, siteID, []int{year})
	if err != nil {
		s.logger.Error("查询站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return nil, "", err
	}

	body := BuildCalendarICS(fmt.Sprintf("%s %d", site.Name, year), mergeCalendarDays(cals), s.clock.Now().UTC())
	filename := fmt.Sprintf("calendario_%d_%d.ics", siteID, year)
	return bytes.NewBufferString(body), filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func joinSites(ids []int) string {
	var b bytes.Buffer
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%d", id)
	}
	return b.String()
}
