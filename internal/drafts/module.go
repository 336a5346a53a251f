// Package drafts wires the draft quote bounded context: wizard step storage,
// priced options, and synchronization with the upstream quote service.
package drafts

import (
	"forwarding_portal_backend/internal/drafts/handler"
	"forwarding_portal_backend/internal/drafts/repository"
	"forwarding_portal_backend/internal/drafts/service"
	"forwarding_portal_backend/internal/drafts/sync"
	"forwarding_portal_backend/internal/events"
	apphttp "forwarding_portal_backend/internal/http"
	"forwarding_portal_backend/platform/config"
	"forwarding_portal_backend/platform/logger"
	"forwarding_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the drafts bounded context.
type Module struct {
	handler *handler.Handler
	service *service.Service
	saver   *sync.Saver
}

// New assembles the drafts module. Local mutations schedule a background
// push through the requester; passing nil falls back to the in-process saver
// so pushes still happen without a task queue.
func New(pool *pgxpool.Pool, redisClient *redis.Client, cfg config.UpstreamConfig, requester service.SyncRequester, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Module {
	store := repository.New(pool)
	svc := service.New(store, validate, log)

	adapter := sync.NewAdapter(cfg)
	status := sync.NewStatusStore(redisClient)
	saver := sync.NewSaver(store, adapter, status, bus, log)
	if cfg.IsUpstreamEnabled() {
		if requester == nil {
			requester = saver
		}
		svc.SetSyncRequester(requester)
	}

	return &Module{
		handler: handler.New(svc, saver, status),
		service: svc,
		saver:   saver,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "drafts" }

// Service exposes the draft service for other modules (quotes finalization).
func (m *Module) Service() *service.Service { return m.service }

// Saver exposes the sync coordinator for the scheduler worker.
func (m *Module) Saver() *sync.Saver { return m.saver }

// RegisterRoutes mounts the draft routes. All routes require authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	drafts := ctx.Protected.Group("/drafts")
	{
		drafts.POST("", m.handler.Create)
		drafts.GET("", m.handler.List)
		drafts.GET("/:id", m.handler.Get)
		drafts.DELETE("/:id", m.handler.Delete)
		drafts.PATCH("/:id/steps/:step", m.handler.UpdateStep)

		drafts.POST("/:id/options", m.handler.AddOption)
		drafts.PUT("/:id/options/:optionId", m.handler.UpdateOption)
		drafts.DELETE("/:id/options/:optionId", m.handler.RemoveOption)
		drafts.PUT("/:id/options/:optionId/preferred", m.handler.SetPreferred)

		drafts.POST("/:id/sync", m.handler.Sync)
		drafts.GET("/:id/sync-status", m.handler.SyncStatus)
	}
}
