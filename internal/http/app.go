package http

import (
	"context"

	"admissions_crm/internal/events"
	"admissions_crm/platform/config"
	"admissions_crm/platform/logger"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	GetServiceName() string
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by cmd/api and handed to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health may be nil, in which case the health check always passes.
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
