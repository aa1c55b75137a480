package dto

// ── 员工站点归属 DTO ──

// ChangePrincipalSiteRequest 调整员工主站点请求
type ChangePrincipalSiteRequest struct {
	SiteID  int `json:"site_id" binding:"required,min=1"`
	Version int `json:"version" binding:"required,min=1"`
}

// DeactivateWorkerRequest 停用员工请求
type DeactivateWorkerRequest struct {
	Version int `json:"version" binding:"required,min=1"`
}

// WorkerResponse 员工站点归属响应
type WorkerResponse struct {
	WorkerID        string `json:"worker_id"`
	CheckerID       string `json:"checker_id"`
	Name            string `json:"name"`
	PrincipalSiteID *int   `json:"principal_site_id,omitempty"`
	ForeignSiteIDs  []int  `json:"foreign_site_ids"`
	Status          string `json:"status"`
	Version         int    `json:"version"`
}

// MaintenanceResult 后台维护任务结果
type MaintenanceResult struct {
	PurgedSiteIDs []int `json:"purged_site_ids"`
}
