// Package catalog wires the master-data bounded context: products, ancillary
// services, ports, and customer contacts feeding the quoting wizard.
package catalog

import (
	"forwarding_portal_backend/internal/catalog/handler"
	"forwarding_portal_backend/internal/catalog/repository"
	"forwarding_portal_backend/internal/catalog/service"
	apphttp "forwarding_portal_backend/internal/http"
	"forwarding_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context.
type Module struct {
	handler *handler.Handler
}

// New assembles the catalog module.
func New(pool *pgxpool.Pool, validate *validator.Validator) *Module {
	store := repository.New(pool)
	svc := service.New(store, validate)
	return &Module{handler: handler.New(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "catalog" }

// RegisterRoutes mounts the catalog routes. Reads and contact management are
// available to any authenticated user; products, services, and ports are
// admin-managed.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	catalog := ctx.Protected.Group("/catalog")
	{
		catalog.GET("/products", m.handler.ListProducts)
		catalog.GET("/services", m.handler.ListServices)
		catalog.GET("/ports", m.handler.ListPorts)
		catalog.GET("/contacts", m.handler.ListContacts)
		catalog.POST("/contacts", m.handler.CreateContact)
		catalog.PUT("/contacts/:id", m.handler.UpdateContact)
		catalog.DELETE("/contacts/:id", m.handler.DeleteContact)
	}

	admin := ctx.Admin.Group("/catalog")
	{
		admin.PUT("/products", m.handler.UpsertProduct)
		admin.DELETE("/products/:id", m.handler.DeleteProduct)
		admin.PUT("/services", m.handler.UpsertService)
		admin.DELETE("/services/:id", m.handler.DeleteService)
		admin.PUT("/ports", m.handler.UpsertPort)
		admin.DELETE("/ports/:id", m.handler.DeletePort)
	}
}
