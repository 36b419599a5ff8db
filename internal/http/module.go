// Package http holds the contracts between the router and the modules that
// mount routes on it.
package http

import (
	"admissions_crm/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with an HTTP surface.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands modules the pre-guarded route groups:
//
//	V1         /api/v1, public
//	Protected  /api/v1, bearer token required
//	Admin      /api/v1/admin, admin role
//	Counsellor /api/v1/counsellor, counsellor role
type RouterContext struct {
	Engine     *gin.Engine
	V1         *gin.RouterGroup
	Protected  *gin.RouterGroup
	Admin      *gin.RouterGroup
	Counsellor *gin.RouterGroup
	Config     config.JWTConfig
}
