package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/api/middleware"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextUserID)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 返回写入审计字段的操作人：优先邮箱，其次 user_id
func MustGetActor(c *gin.Context) (string, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return "", false
	}
	if email := c.GetString(middleware.ContextEmail); email != "" {
		return email, true
	}
	return userID, true
}

// parseIntParam 解析正整数路径参数，失败时写入 400
func parseIntParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		response.BadRequest(c, response.CodeInvalidParam, name+" 无效")
		return 0, false
	}
	return v, true
}
