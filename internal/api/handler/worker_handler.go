package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/service"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

// WorkerHandler 员工站点归属 HTTP 处理器
type WorkerHandler struct {
	workerSvc service.WorkerService
}

// NewWorkerHandler 创建 WorkerHandler
func NewWorkerHandler(workerSvc service.WorkerService) *WorkerHandler {
	return &WorkerHandler{workerSvc: workerSvc}
}

// ChangePrincipalSite 调整员工主站点
// PUT /api/v1/workers/:id/principal-site
func (h *WorkerHandler) ChangePrincipalSite(c *gin.Context) {
	var req dto.ChangePrincipalSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.workerSvc.ChangePrincipalSite(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, result)
}

// Deactivate 停用员工
// POST /api/v1/workers/:id/deactivate
func (h *WorkerHandler) Deactivate(c *gin.Context) {
	var req dto.DeactivateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "参数校验失败")
		return
	}

	result, err := h.workerSvc.Deactivate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleWorkerError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *WorkerHandler) handleWorkerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkerNotFound):
		response.NotFound(c, 21001, "员工不存在")
	case errors.Is(err, service.ErrSiteNotFound):
		response.NotFound(c, 20001, "站点不存在")
	case errors.Is(err, service.ErrWorkerInactive):
		response.Conflict(c, 24001, "员工已停用")
	case errors.Is(err, service.ErrSiteNotActive):
		response.Conflict(c, 24002, "站点处于待删除状态")
	case errors.Is(err, service.ErrVersionMismatch):
		response.Conflict(c, 24003, "员工信息已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
