package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

const testBatchSource = "batch-assistant"

func setupTestCalendarBatchService() (CalendarBatchService, *mockRepos) {
	repo, mocks := newMockRepos()
	cfg := config.BatchConfig{MaxSpanDays: 120, Source: testBatchSource}
	svc := NewCalendarBatchService(cfg, repo, NewLocalLocker(time.Second), clock.Fixed(testNow), zap.NewNop())

	mocks.site.sites[1] = &model.Site{SiteID: 1, Name: "Planta Norte", Status: model.SiteStatusActive}
	mocks.site.sites[2] = &model.Site{SiteID: 2, Name: "Planta Sur", Status: model.SiteStatusActive}
	return svc, mocks
}

// 2025-12-01 至 2026-01-31 的周日：12/7 12/14 12/21 12/28 1/4 1/11 1/18 1/25
func sundayRequest() *dto.CalendarBatchRequest {
	return &dto.CalendarBatchRequest{
		SiteIDs:     []int{2, 1, 2},
		Start:       "2025-12-01",
		End:         "2026-01-31",
		Description: "Descanso dominical",
	}
}

// seedManualRest 站点 1 的 2025 日历里已有手工录入的 12/14
func seedManualRest(m *mockRepos) *model.Calendar {
	cal := &model.Calendar{Year: 2025, SiteIDs: model.IntArray{1}}
	_ = m.calendar.Create(context.Background(), cal)
	m.calendar.addDay(cal.CalendarID, anchored("2025-12-14"), model.DayTypeRest, model.SourceManual, nil)
	return cal
}

// ── Preview ──

func TestPreview_CountsAndOrder(t *testing.T) {
	svc, mocks := setupTestCalendarBatchService()
	seedManualRest(mocks)

	resp, err := svc.Preview(context.Background(), sundayRequest())
	if err != nil {
		t.Fatalf("Preview 应成功: %v", err)
	}
	if resp.TotalDates != 16 || resp.ToCreate != 15 || resp.AlreadyOccupied != 1 {
		t.Errorf("期望 16/15/1，实际=%d/%d/%d", resp.TotalDates, resp.ToCreate, resp.AlreadyOccupied)
	}
	if len(resp.Items) != 16 {
		t.Fatalf("期望 16 项，实际=%d", len(resp.Items))
	}
	first, last := resp.Items[0], resp.Items[15]
	if first.SiteID != 1 || first.Date != "2025-12-07" || last.SiteID != 2 || last.Date != "2026-01-25" {
		t.Errorf("期望按站点、日期排序，实际首项=%+v 末项=%+v", first, last)
	}
	if resp.Items[1].Date != "2025-12-14" || resp.Items[1].Action != dto.ActionOccupied {
		t.Errorf("期望 12/14 已占用，实际=%+v", resp.Items[1])
	}

	// 预览不写入
	if len(mocks.calendar.calendars) != 1 || len(mocks.calendar.calendars[1].Days) != 1 {
		t.Error("Preview 不应修改日历")
	}
}

func TestPreview_Rejects(t *testing.T) {
	svc, _ := setupTestCalendarBatchService()
	ctx := context.Background()

	long := sundayRequest()
	long.Start, long.End = "2025-01-01", "2025-07-19" // 200 天
	if _, err := svc.Preview(ctx, long); !errors.Is(err, ErrBatchWindowTooLarge) || !errors.Is(err, pkgerrors.ErrBadRequest) {
		t.Errorf("200 天期望 ErrBatchWindowTooLarge，实际=%v", err)
	}

	reversed := sundayRequest()
	reversed.Start, reversed.End = "2026-01-31", "2025-12-01"
	if _, err := svc.Preview(ctx, reversed); !errors.Is(err, ErrBatchInvalidRange) {
		t.Errorf("期望 ErrBatchInvalidRange，实际=%v", err)
	}

	unknown := sundayRequest()
	unknown.SiteIDs = []int{1, 99}
	if _, err := svc.Preview(ctx, unknown); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("期望 ErrSiteNotFound，实际=%v", err)
	}
}

func TestPreview_CustomWeekday(t *testing.T) {
	svc, _ := setupTestCalendarBatchService()
	req := &dto.CalendarBatchRequest{SiteIDs: []int{1}, Start: "2025-01-01", End: "2025-01-31", Weekday: intPtr(6)}

	resp, err := svc.Preview(context.Background(), req)
	if err != nil {
		t.Fatalf("Preview 应成功: %v", err)
	}
	// 2025 年 1 月的周六：4 11 18 25
	if resp.TotalDates != 4 || resp.Items[0].Date != "2025-01-04" {
		t.Errorf("期望 4 个周六从 01-04 开始，实际=%d %+v", resp.TotalDates, resp.Items)
	}
}

// ── Apply / Undo ──

func TestApply_IdempotentAndUndo(t *testing.T) {
	svc, mocks := setupTestCalendarBatchService()
	cal := seedManualRest(mocks)
	before := append([]model.CalendarDay(nil), mocks.calendar.calendars[cal.CalendarID].Days...)
	ctx := context.Background()

	first, err := svc.Apply(ctx, sundayRequest(), "admin@alu.mx")
	if err != nil {
		t.Fatalf("Apply 应成功: %v", err)
	}
	if first.Created != 15 || first.Skipped != 1 {
		t.Errorf("期望 created=15 skipped=1，实际=%d/%d", first.Created, first.Skipped)
	}
	if len(mocks.calendar.calendars) != 4 {
		t.Errorf("期望新建 3 个日历共 4 个，实际=%d", len(mocks.calendar.calendars))
	}
	for _, c := range mocks.calendar.calendars {
		for _, d := range c.Days {
			if d.Source == model.SourceManual {
				continue
			}
			if d.Type != model.DayTypeRest || d.Source != testBatchSource || d.BatchID == nil || *d.BatchID != first.BatchID {
				t.Errorf("批量写入的特殊日字段不符: %+v", d)
			}
			if d.CreatedBy != "admin@alu.mx" || !d.CreatedAt.Equal(testNow) {
				t.Errorf("期望记录创建人与时间，实际=%s %v", d.CreatedBy, d.CreatedAt)
			}
		}
	}

	second, err := svc.Apply(ctx, sundayRequest(), "admin@alu.mx")
	if err != nil {
		t.Fatalf("第二次 Apply 应成功: %v", err)
	}
	if second.Created != 0 || second.Skipped != 16 {
		t.Errorf("第二次期望 created=0 skipped=16，实际=%d/%d", second.Created, second.Skipped)
	}
	if second.BatchID == first.BatchID {
		t.Error("每次 Apply 应生成新的批次 ID")
	}

	// 撤销没有写入任何数据的批次
	undoEmpty, err := svc.Undo(ctx, second.BatchID)
	if err != nil {
		t.Fatalf("Undo 应成功: %v", err)
	}
	if undoEmpty.CalendarsModified != 0 {
		t.Errorf("空批次期望修改 0 个日历，实际=%d", undoEmpty.CalendarsModified)
	}

	undo, err := svc.Undo(ctx, first.BatchID)
	if err != nil {
		t.Fatalf("Undo 应成功: %v", err)
	}
	if undo.CalendarsModified != 4 {
		t.Errorf("期望修改 4 个日历，实际=%d", undo.CalendarsModified)
	}
	if undo.CalendarsRemoved != 3 {
		t.Errorf("期望删除批次新建的 3 个日历，实际=%d", undo.CalendarsRemoved)
	}
	after := mocks.calendar.calendars[cal.CalendarID].Days
	if !reflect.DeepEqual(before, after) {
		t.Errorf("撤销后日历应与执行前一致:\n%+v\n%+v", before, after)
	}
	if len(mocks.calendar.calendars) != 1 {
		t.Errorf("撤销后期望只剩原有日历，实际=%d 个", len(mocks.calendar.calendars))
	}
}

// 站点 1 自有日历（id 1）之外还在共享日历 {1,2}（id 2）中，12/14 只在共享日历里
func seedSharedHoliday(m *mockRepos) (own, shared *model.Calendar) {
	own = &model.Calendar{Year: 2025, SiteIDs: model.IntArray{1}}
	shared = &model.Calendar{Year: 2025, SiteIDs: model.IntArray{1, 2}}
	_ = m.calendar.Create(context.Background(), own)
	_ = m.calendar.Create(context.Background(), shared)
	m.calendar.addDay(shared.CalendarID, anchored("2025-12-14"), model.DayTypeHoliday, model.SourceManual, nil)
	return own, shared
}

func TestPreview_SharedCalendarOccupies(t *testing.T) {
	svc, mocks := setupTestCalendarBatchService()
	seedSharedHoliday(mocks)
	req := &dto.CalendarBatchRequest{SiteIDs: []int{1}, Start: "2025-12-14", End: "2025-12-14"}

	resp, err := svc.Preview(context.Background(), req)
	if err != nil {
		t.Fatalf("Preview 应成功: %v", err)
	}
	if resp.ToCreate != 0 || resp.AlreadyOccupied != 1 {
		t.Errorf("期望 0/1，实际=%d/%d", resp.ToCreate, resp.AlreadyOccupied)
	}
	if len(resp.Items) != 1 || resp.Items[0].Action != dto.ActionOccupied {
		t.Errorf("期望 12/14 已占用，实际=%+v", resp.Items)
	}

	// 站点 2 同样看到共享日历里的日期
	req.SiteIDs = []int{2}
	resp, err = svc.Preview(context.Background(), req)
	if err != nil {
		t.Fatalf("Preview 应成功: %v", err)
	}
	if resp.AlreadyOccupied != 1 {
		t.Errorf("站点 2 期望 12/14 已占用，实际=%+v", resp.Items)
	}
}

func TestApply_SharedCalendarSkips(t *testing.T) {
	svc, mocks := setupTestCalendarBatchService()
	own, shared := seedSharedHoliday(mocks)
	req := &dto.CalendarBatchRequest{SiteIDs: []int{1}, Start: "2025-12-01", End: "2025-12-21"}

	resp, err := svc.Apply(context.Background(), req, "admin")
	if err != nil {
		t.Fatalf("Apply 应成功: %v", err)
	}
	// 12/7 12/14 12/21，其中 12/14 已在共享日历
	if resp.Created != 2 || resp.Skipped != 1 {
		t.Errorf("期望 created=2 skipped=1，实际=%d/%d", resp.Created, resp.Skipped)
	}
	if n := len(mocks.calendar.calendars[own.CalendarID].Days); n != 2 {
		t.Errorf("期望写入 calendar_id 最小的日历 2 条，实际=%d", n)
	}
	if n := len(mocks.calendar.calendars[shared.CalendarID].Days); n != 1 {
		t.Errorf("共享日历不应被写入，实际=%d 条", n)
	}
	if len(mocks.calendar.calendars) != 2 {
		t.Errorf("已有覆盖日历时不应新建，实际=%d 个", len(mocks.calendar.calendars))
	}

	undo, err := svc.Undo(context.Background(), resp.BatchID)
	if err != nil {
		t.Fatalf("Undo 应成功: %v", err)
	}
	if undo.CalendarsModified != 1 || undo.CalendarsRemoved != 0 {
		t.Errorf("期望修改 1 个、删除 0 个，实际=%d/%d", undo.CalendarsModified, undo.CalendarsRemoved)
	}
	if _, ok := mocks.calendar.calendars[own.CalendarID]; !ok {
		t.Error("非批次新建的日历撤销后应保留")
	}
}

func TestApply_OnlyOccupiedCreatesNoCalendar(t *testing.T) {
	svc, mocks := setupTestCalendarBatchService()
	shared := &model.Calendar{Year: 2025, SiteIDs: model.IntArray{2}}
	_ = mocks.calendar.Create(context.Background(), shared)
	mocks.calendar.addDay(shared.CalendarID, anchored("2025-12-14"), model.DayTypeRest, model.SourceManual, nil)
	req := &dto.CalendarBatchRequest{SiteIDs: []int{2}, Start: "2025-12-14", End: "2025-12-14"}

	resp, err := svc.Apply(context.Background(), req, "admin")
	if err != nil {
		t.Fatalf("Apply 应成功: %v", err)
	}
	if resp.Created != 0 || resp.Skipped != 1 || len(mocks.calendar.calendars) != 1 {
		t.Errorf("期望 created=0 skipped=1 且不新建日历，实际=%d/%d 日历=%d",
			resp.Created, resp.Skipped, len(mocks.calendar.calendars))
	}
}

func TestUndo_InvalidID(t *testing.T) {
	svc, _ := setupTestCalendarBatchService()
	if _, err := svc.Undo(context.Background(), "not-a-uuid"); !errors.Is(err, ErrBatchInvalidID) {
		t.Errorf("期望 ErrBatchInvalidID，实际=%v", err)
	}
}

func TestApply_BusyLock(t *testing.T) {
	repo, mocks := newMockRepos()
	mocks.site.sites[1] = &model.Site{SiteID: 1, Status: model.SiteStatusActive}
	locker := NewLocalLocker(20 * time.Millisecond)
	svc := NewCalendarBatchService(config.BatchConfig{MaxSpanDays: 120, Source: testBatchSource},
		repo, locker, clock.Fixed(testNow), zap.NewNop())

	unlock, err := locker.Lock(context.Background(), "calendar-batch:1:2025")
	if err != nil {
		t.Fatalf("加锁应成功: %v", err)
	}
	defer unlock()

	req := &dto.CalendarBatchRequest{SiteIDs: []int{1}, Start: "2025-01-01", End: "2025-01-31"}
	if _, err := svc.Apply(context.Background(), req, "admin"); !errors.Is(err, ErrBatchBusy) {
		t.Errorf("期望 ErrBatchBusy，实际=%v", err)
	}
}
