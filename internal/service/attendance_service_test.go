package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

const testWorkerID = "5f0c6a1e-8d7b-4c53-9a61-0b6f4f1d2e11"

// 2025-01-10 12:00 America/Mexico_City
var testNow = time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)

func testNormalizer(t *testing.T) *datenorm.Normalizer {
	t.Helper()
	norm, err := datenorm.New("America/Mexico_City", clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("创建 Normalizer 失败: %v", err)
	}
	return norm
}

func setupTestAttendanceService(t *testing.T, policy string) (AttendanceService, *mockRepos) {
	t.Helper()
	repo, mocks := newMockRepos()
	cfg := config.AttendanceConfig{
		Timezone:        "America/Mexico_City",
		OpenEntryPolicy: policy,
		MaxReportDays:   366,
	}
	svc := NewAttendanceService(cfg, repo, testNormalizer(t), zap.NewNop())

	mocks.site.sites[1] = &model.Site{SiteID: 1, Name: "Planta Norte", Status: model.SiteStatusActive}
	mocks.worker.workers[testWorkerID] = &model.Worker{
		WorkerID:        testWorkerID,
		CheckerID:       "1001",
		Name:            "Ana López",
		PrincipalSiteID: intPtr(1),
		ForeignSiteIDs:  model.IntArray{3},
		Status:          model.WorkerStatusActive,
		Version:         1,
	}
	return svc, mocks
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func anchored(ymd string) time.Time {
	t, err := datenorm.AnchorYMD(ymd)
	if err != nil {
		panic(err)
	}
	return t
}

func punch(typ, at string) model.Punch {
	return model.Punch{Type: typ, PunchedAt: utc(at), Synced: true}
}

func addRecord(m *mockRepos, key string, siteID int, day string, punches ...model.Punch) {
	m.attendance.records = append(m.attendance.records, model.AttendanceRecord{
		RecordID:  int64(len(m.attendance.records) + 1),
		WorkerKey: key,
		SiteID:    siteID,
		Day:       day,
		Punches:   punches,
	})
}

func dayOf(t *testing.T, days []dto.DayRecord, ymd string) dto.DayRecord {
	t.Helper()
	for _, d := range days {
		if d.Date == ymd {
			return d
		}
	}
	t.Fatalf("报表中没有 %s", ymd)
	return dto.DayRecord{}
}

// ── 打卡判定 ──

func TestBuildReport_SingleEntryAutoCheckout(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	addRecord(mocks, "1001", 1, "2025-01-06", punch(model.PunchEntry, "2025-01-06T14:01:00Z"))

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("期望 1 天，实际=%d", len(days))
	}
	d := days[0]
	if d.Status != dto.StatusAutomaticCheckout {
		t.Errorf("期望 Automatic Checkout，实际=%s", d.Status)
	}
	if d.Entrada != "08:01" || d.Salida != "" {
		t.Errorf("期望 entrada=08:01 salida 为空，实际=%q %q", d.Entrada, d.Salida)
	}
	if !reflect.DeepEqual(d.Sites, []int{1}) {
		t.Errorf("期望 sites=[1]，实际=%v", d.Sites)
	}
}

func TestBuildReport_Complete(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	addRecord(mocks, "1001", 1, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T14:10:00Z"),
		punch(model.PunchEntry, "2025-01-06T14:00:00Z"),
		punch("Salida Comida", "2025-01-06T19:00:00Z"),
		punch(model.PunchExit, "2025-01-06T23:30:00Z"),
	)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	d := days[0]
	if d.Status != dto.StatusCompleteAttendance {
		t.Fatalf("期望 Complete Attendance，实际=%s", d.Status)
	}
	if d.Entrada != "08:00" || d.Salida != "17:30" {
		t.Errorf("期望最早进场 08:00 最晚离场 17:30，实际=%s %s", d.Entrada, d.Salida)
	}
}

func TestBuildReport_PunchBucketedByCivilDay(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	// UTC 已是 1 月 7 日，但墨西哥城仍是 1 月 6 日 21:30
	addRecord(mocks, "1001", 1, "2025-01-07", punch(model.PunchEntry, "2025-01-07T03:30:00Z"))

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-07", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if got := dayOf(t, days, "2025-01-06"); got.Entrada != "21:30" {
		t.Errorf("期望 1 月 6 日 entrada=21:30，实际=%+v", got)
	}
	if got := dayOf(t, days, "2025-01-07"); got.Status != dto.StatusAbsence {
		t.Errorf("期望 1 月 7 日 Absence，实际=%s", got.Status)
	}
}

func TestBuildReport_PendingPolicy(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryPending)
	addRecord(mocks, "1001", 1, "2025-01-09", punch(model.PunchEntry, "2025-01-09T14:00:00Z"))
	addRecord(mocks, "1001", 1, "2025-01-10", punch(model.PunchEntry, "2025-01-10T14:00:00Z"))

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-09", "2025-01-10", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if got := dayOf(t, days, "2025-01-09"); got.Status != dto.StatusAutomaticCheckout {
		t.Errorf("过去的未闭合打卡期望 Automatic Checkout，实际=%s", got.Status)
	}
	if got := dayOf(t, days, "2025-01-10"); got.Status != dto.StatusPending {
		t.Errorf("今天的未闭合打卡期望 Pending，实际=%s", got.Status)
	}
}

func TestBuildReport_OtherSite(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	addRecord(mocks, "1001", 5, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T15:00:00Z"),
		punch(model.PunchExit, "2025-01-06T22:00:00Z"),
	)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	d := days[0]
	if d.Status != dto.StatusOtherSite {
		t.Fatalf("期望 Other Site，实际=%s", d.Status)
	}
	if d.Entrada != "09:00" || d.Salida != "16:00" {
		t.Errorf("期望范围外站点的时间 09:00/16:00，实际=%s/%s", d.Entrada, d.Salida)
	}
	if !reflect.DeepEqual(d.Sites, []int{5}) {
		t.Errorf("期望 sites=[5]，实际=%v", d.Sites)
	}

	// 不限站点时同样的打卡就是完整出勤
	days, err = svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopeUnrestricted)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if days[0].Status != dto.StatusCompleteAttendance {
		t.Errorf("unrestricted 期望 Complete Attendance，实际=%s", days[0].Status)
	}
}

func TestBuildReport_ForeignSiteInScope(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	addRecord(mocks, "1001", 3, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T15:00:00Z"),
		punch(model.PunchExit, "2025-01-06T22:00:00Z"),
	)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopePrincipalPlusForeign)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if days[0].Status != dto.StatusCompleteAttendance {
		t.Errorf("外派站点在范围内，期望 Complete Attendance，实际=%s", days[0].Status)
	}
}

// ── 特殊日 ──

func TestBuildReport_ManualAttendanceWins(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	mocks.workerCalendar.calendars = append(mocks.workerCalendar.calendars, model.WorkerCalendar{
		WorkerCalendarID: 1, WorkerID: testWorkerID, Year: 2025,
		Days: []model.WorkerCalendarDay{{
			Day: anchored("2025-01-06"), Type: "Asistencia",
			StartTime: strPtr("09:00"), EndTime: strPtr("18:00"),
		}},
	})
	addRecord(mocks, "1001", 1, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T14:00:00Z"),
		punch(model.PunchExit, "2025-01-06T23:00:00Z"),
	)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	d := days[0]
	if d.Status != dto.StatusManualAttendance || d.Entrada != "09:00" || d.Salida != "18:00" {
		t.Errorf("期望 Manual Attendance 09:00/18:00，实际=%+v", d)
	}
}

func TestBuildReport_WorkerEventBeatsPunches(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	mocks.workerCalendar.calendars = append(mocks.workerCalendar.calendars, model.WorkerCalendar{
		WorkerCalendarID: 1, WorkerID: testWorkerID, Year: 2025,
		Days: []model.WorkerCalendarDay{{Day: anchored("2025-01-06"), Type: "vacaciones"}},
	})
	addRecord(mocks, "1001", 1, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T14:00:00Z"),
		punch(model.PunchExit, "2025-01-06T23:00:00Z"),
	)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-06", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	d := days[0]
	if d.Status != "vacaciones" || d.WorkerEvent != "vacaciones" {
		t.Errorf("期望员工事件 vacaciones 优先，实际=%+v", d)
	}
	if d.Entrada != "" || d.Salida != "" {
		t.Errorf("期望事件日时间为空，实际=%q %q", d.Entrada, d.Salida)
	}
}

func TestBuildReport_SiteEvent(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	cal := &model.Calendar{Year: 2025, SiteIDs: model.IntArray{1, 2}}
	_ = mocks.calendar.Create(context.Background(), cal)
	mocks.calendar.addDay(cal.CalendarID, anchored("2025-01-06"), model.DayTypeHoliday, model.SourceManual, nil)
	mocks.calendar.addDay(cal.CalendarID, anchored("2025-01-07"), model.DayTypeHoliday, model.SourceManual, nil)
	addRecord(mocks, "1001", 1, "2025-01-07",
		punch(model.PunchEntry, "2025-01-07T14:00:00Z"),
		punch(model.PunchExit, "2025-01-07T20:00:00Z"),
	)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-07", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	holiday := dayOf(t, days, "2025-01-06")
	if holiday.Status != model.DayTypeHoliday || holiday.SiteEvent != model.DayTypeHoliday {
		t.Errorf("期望站点事件 holiday，实际=%+v", holiday)
	}
	worked := dayOf(t, days, "2025-01-07")
	if worked.Status != dto.StatusCompleteAttendance || worked.SiteEvent != model.DayTypeHoliday {
		t.Errorf("期望打卡优先于站点事件且保留 site_event，实际=%+v", worked)
	}
}

func TestBuildReport_AbsenceAndOrder(t *testing.T) {
	svc, _ := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2024-12-30", "2025-01-02", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	want := []string{"2024-12-30", "2024-12-31", "2025-01-01", "2025-01-02"}
	if len(days) != len(want) {
		t.Fatalf("期望 %d 天，实际=%d", len(want), len(days))
	}
	for i, d := range days {
		if d.Date != want[i] {
			t.Errorf("第 %d 天期望 %s，实际=%s", i, want[i], d.Date)
		}
		if d.Status != dto.StatusAbsence || d.Entrada != dto.NoTime || d.Salida != dto.NoTime {
			t.Errorf("期望 Absence —/—，实际=%+v", d)
		}
		if d.Sites == nil || len(d.Sites) != 0 {
			t.Errorf("期望空 sites 列表，实际=%v", d.Sites)
		}
	}
}

func TestBuildReport_LegacyKeyAndSingleFetch(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	addRecord(mocks, testWorkerID, 1, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T14:00:00Z"),
		punch(model.PunchExit, "2025-01-06T22:00:00Z"),
	)
	addRecord(mocks, "9999", 1, "2025-01-07", punch(model.PunchEntry, "2025-01-07T14:00:00Z"))

	days, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-06", "2025-01-07", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if got := dayOf(t, days, "2025-01-06"); got.Status != dto.StatusCompleteAttendance {
		t.Errorf("期望按内部 ID 找到旧记录，实际=%s", got.Status)
	}
	if got := dayOf(t, days, "2025-01-07"); got.Status != dto.StatusAbsence {
		t.Errorf("其他员工的记录不应计入，实际=%s", got.Status)
	}
	if mocks.attendance.calls != 1 {
		t.Errorf("期望只查询一次打卡，实际=%d", mocks.attendance.calls)
	}
}

func TestBuildReport_Idempotent(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	addRecord(mocks, "1001", 1, "2025-01-06", punch(model.PunchEntry, "2025-01-06T14:00:00Z"))
	addRecord(mocks, "1001", 5, "2025-01-07", punch(model.PunchExit, "2025-01-07T20:00:00Z"))

	first, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-05", "2025-01-08", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	second, err := svc.BuildReport(context.Background(), testWorkerID, "2025-01-05", "2025-01-08", ScopePrincipalOnly)
	if err != nil {
		t.Fatalf("BuildReport 应成功: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("两次结果不一致:\n%v\n%v", first, second)
	}
	other := dayOf(t, first, "2025-01-07")
	if other.Status != dto.StatusOtherSite || other.Entrada != dto.NoTime || other.Salida != "14:00" {
		t.Errorf("期望只有离场的 Other Site —/14:00，实际=%+v", other)
	}
}

// ── 参数校验 ──

func TestBuildReport_Errors(t *testing.T) {
	svc, _ := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	ctx := context.Background()

	ranges := map[string][2]string{
		"起始晚于结束": {"2025-01-10", "2025-01-01"},
		"缺少日期":   {"", "2025-01-01"},
		"格式错误":   {"2025/01/01", "2025-01-02"},
		"跨度过大":   {"2024-01-01", "2025-06-01"},
	}
	for name, r := range ranges {
		t.Run(name, func(t *testing.T) {
			_, err := svc.BuildReport(ctx, testWorkerID, r[0], r[1], ScopePrincipalOnly)
			if !errors.Is(err, ErrBadRange) || !errors.Is(err, pkgerrors.ErrBadRequest) {
				t.Errorf("期望 ErrBadRange，实际=%v", err)
			}
		})
	}

	if _, err := svc.BuildReport(ctx, "missing", "2025-01-01", "2025-01-02", ScopePrincipalOnly); !errors.Is(err, ErrWorkerNotFound) {
		t.Errorf("期望 ErrWorkerNotFound，实际=%v", err)
	}
}

func TestParseScopePolicy(t *testing.T) {
	if p, err := ParseScopePolicy(""); err != nil || p != ScopePrincipalPlusForeign {
		t.Errorf("空值期望 principal-plus-foreign，实际=%s %v", p, err)
	}
	if _, err := ParseScopePolicy("everything"); !errors.Is(err, pkgerrors.ErrBadRequest) {
		t.Errorf("期望 ErrBadRequest，实际=%v", err)
	}
}

// ── 报表组装 ──

func TestBuildSiteReport(t *testing.T) {
	svc, mocks := setupTestAttendanceService(t, config.OpenEntryAutoCheckout)
	mocks.worker.workers["w-2"] = &model.Worker{
		WorkerID: "w-2", CheckerID: "1002", Name: "Beto Ruiz",
		PrincipalSiteID: intPtr(1), Status: model.WorkerStatusActive,
	}
	mocks.worker.workers["w-3"] = &model.Worker{
		WorkerID: "w-3", CheckerID: "1003", Name: "Carla Díaz",
		PrincipalSiteID: intPtr(1), Status: model.WorkerStatusInactive,
	}
	addRecord(mocks, "1002", 1, "2025-01-06",
		punch(model.PunchEntry, "2025-01-06T14:00:00Z"),
		punch(model.PunchExit, "2025-01-06T22:00:00Z"),
	)

	resp, err := svc.BuildSiteReport(context.Background(), 1, "2025-01-06", "2025-01-06")
	if err != nil {
		t.Fatalf("BuildSiteReport 应成功: %v", err)
	}
	if resp.SiteName != "Planta Norte" || len(resp.Workers) != 2 {
		t.Fatalf("期望 2 名在职员工，实际=%d", len(resp.Workers))
	}
	if resp.Workers[0].Name != "Ana López" || resp.Workers[1].Days[0].Status != dto.StatusCompleteAttendance {
		t.Errorf("站点报表内容不符: %+v", resp.Workers)
	}
	if resp.Workers[0].Scope != string(ScopePrincipalOnly) {
		t.Errorf("期望 scope=principal-only，实际=%s", resp.Workers[0].Scope)
	}

	if _, err := svc.BuildSiteReport(context.Background(), 42, "2025-01-06", "2025-01-06"); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("期望 ErrSiteNotFound，实际=%v", err)
	}
}
