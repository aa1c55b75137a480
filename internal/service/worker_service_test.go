package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

func setupTestWorkerService() (WorkerService, *mockRepos) {
	repo, mocks := newMockRepos()
	svc := NewWorkerService(repo, clock.Fixed(testNow), zap.NewNop())

	mocks.site.sites[1] = &model.Site{SiteID: 1, Name: "Planta Norte", Status: model.SiteStatusActive}
	mocks.site.sites[2] = &model.Site{SiteID: 2, Name: "Planta Sur", Status: model.SiteStatusActive}
	mocks.site.sites[3] = &model.Site{SiteID: 3, Name: "Bodega", Status: model.SiteStatusPendingDeletion}
	mocks.worker.workers[testWorkerID] = &model.Worker{
		WorkerID:        testWorkerID,
		CheckerID:       "1001",
		Name:            "Ana López",
		PrincipalSiteID: intPtr(1),
		ForeignSiteIDs:  model.IntArray{2, 4},
		Status:          model.WorkerStatusActive,
		Version:         3,
	}
	_ = mocks.worker.CreateHistory(context.Background(), &model.WorkerSiteHistory{
		WorkerID: testWorkerID, SiteID: 1, SiteName: "Planta Norte", StartedAt: testNow.AddDate(-1, 0, 0),
	})
	return svc, mocks
}

func TestChangePrincipalSite_Success(t *testing.T) {
	svc, mocks := setupTestWorkerService()

	resp, err := svc.ChangePrincipalSite(context.Background(), testWorkerID, &dto.ChangePrincipalSiteRequest{SiteID: 2, Version: 3})
	if err != nil {
		t.Fatalf("ChangePrincipalSite 应成功: %v", err)
	}
	if resp.PrincipalSiteID == nil || *resp.PrincipalSiteID != 2 {
		t.Errorf("期望主站点为 2，实际=%v", resp.PrincipalSiteID)
	}
	if len(resp.ForeignSiteIDs) != 1 || resp.ForeignSiteIDs[0] != 4 {
		t.Errorf("期望外派站点去掉新主站点后为 [4]，实际=%v", resp.ForeignSiteIDs)
	}
	if resp.Version != 4 {
		t.Errorf("期望 version=4，实际=%d", resp.Version)
	}

	open := mocks.worker.openEntries(testWorkerID)
	if len(open) != 1 || open[0].SiteID != 2 || open[0].SiteName != "Planta Sur" {
		t.Fatalf("期望恰好一条指向站点 2 的未关闭履历，实际=%+v", open)
	}
	if !open[0].StartedAt.Equal(testNow) {
		t.Errorf("期望新履历开始于当前时间，实际=%v", open[0].StartedAt)
	}
	closed := mocks.worker.history[0]
	if closed.EndedAt == nil || !closed.EndedAt.Equal(testNow) {
		t.Errorf("期望旧履历在当前时间关闭，实际=%v", closed.EndedAt)
	}
}

func TestChangePrincipalSite_SameSiteNoop(t *testing.T) {
	svc, mocks := setupTestWorkerService()

	resp, err := svc.ChangePrincipalSite(context.Background(), testWorkerID, &dto.ChangePrincipalSiteRequest{SiteID: 1, Version: 3})
	if err != nil {
		t.Fatalf("ChangePrincipalSite 应成功: %v", err)
	}
	if resp.Version != 3 || len(mocks.worker.history) != 1 {
		t.Errorf("相同站点不应产生变更，实际 version=%d 履历=%d", resp.Version, len(mocks.worker.history))
	}
}

func TestChangePrincipalSite_Errors(t *testing.T) {
	svc, mocks := setupTestWorkerService()
	ctx := context.Background()

	if _, err := svc.ChangePrincipalSite(ctx, testWorkerID, &dto.ChangePrincipalSiteRequest{SiteID: 2, Version: 2}); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("版本不一致期望 ErrOptimisticLock，实际=%v", err)
	}
	if _, err := svc.ChangePrincipalSite(ctx, testWorkerID, &dto.ChangePrincipalSiteRequest{SiteID: 3, Version: 3}); !errors.Is(err, ErrSiteNotActive) {
		t.Errorf("待删除站点期望 ErrSiteNotActive，实际=%v", err)
	}
	if _, err := svc.ChangePrincipalSite(ctx, testWorkerID, &dto.ChangePrincipalSiteRequest{SiteID: 9, Version: 3}); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("期望 ErrSiteNotFound，实际=%v", err)
	}
	if _, err := svc.ChangePrincipalSite(ctx, "missing", &dto.ChangePrincipalSiteRequest{SiteID: 2, Version: 1}); !errors.Is(err, ErrWorkerNotFound) {
		t.Errorf("期望 ErrWorkerNotFound，实际=%v", err)
	}
	if len(mocks.worker.openEntries(testWorkerID)) != 1 || mocks.worker.openEntries(testWorkerID)[0].SiteID != 1 {
		t.Error("失败的请求不应修改履历")
	}
}

func TestDeactivate(t *testing.T) {
	svc, mocks := setupTestWorkerService()
	ctx := context.Background()

	resp, err := svc.Deactivate(ctx, testWorkerID, &dto.DeactivateWorkerRequest{Version: 3})
	if err != nil {
		t.Fatalf("Deactivate 应成功: %v", err)
	}
	if resp.Status != model.WorkerStatusInactive || resp.PrincipalSiteID != nil || len(resp.ForeignSiteIDs) != 0 {
		t.Errorf("期望停用并清空站点，实际=%+v", resp)
	}
	if len(mocks.worker.openEntries(testWorkerID)) != 0 {
		t.Error("停用后不应有未关闭的履历")
	}

	if _, err := svc.ChangePrincipalSite(ctx, testWorkerID, &dto.ChangePrincipalSiteRequest{SiteID: 2, Version: resp.Version}); !errors.Is(err, ErrWorkerInactive) {
		t.Errorf("停用后调整站点期望 ErrWorkerInactive，实际=%v", err)
	}
}
