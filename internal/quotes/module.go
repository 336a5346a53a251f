// Package quotes wires the quote bounded context: finalizing drafts into
// numbered quotes and walking them through the send/accept workflow.
package quotes

import (
	"forwarding_portal_backend/internal/email"
	"forwarding_portal_backend/internal/events"
	apphttp "forwarding_portal_backend/internal/http"
	"forwarding_portal_backend/internal/quotes/handler"
	"forwarding_portal_backend/internal/quotes/repository"
	"forwarding_portal_backend/internal/quotes/service"
	"forwarding_portal_backend/platform/logger"
	"forwarding_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotes bounded context.
type Module struct {
	handler *handler.Handler
}

// New assembles the quotes module on top of the drafts module.
func New(pool *pgxpool.Pool, drafts service.DraftSource, renderer *email.Renderer, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Module {
	store := repository.New(pool)
	svc := service.New(store, drafts, renderer, bus, validate, log)
	return &Module{handler: handler.New(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "quotes" }

// RegisterRoutes mounts the quote routes. All routes require authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	quotes := ctx.Protected.Group("/quotes")
	{
		quotes.POST("", m.handler.Finalize)
		quotes.GET("", m.handler.List)
		quotes.GET("/:id", m.handler.Get)
		quotes.POST("/:id/send", m.handler.Send)
		quotes.PUT("/:id/status", m.handler.UpdateStatus)
	}
}
