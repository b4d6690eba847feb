// Package http holds the application container and the contract every
// bounded context implements to mount its routes.
package http

import (
	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the groups and shared middleware modules mount on.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthRequired.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin behind AuthRequired and the admin role.
	Admin          *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
	// ActionRateLimiter guards contended writes such as lead acceptance.
	ActionRateLimiter *httpkit.IPRateLimiter
}
