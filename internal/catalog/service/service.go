// Package service implements master-data business logic for the quoting
// wizard: products, ancillary services, ports, and customer contacts.
package service

import (
	"context"
	"strings"

	"forwarding_portal_backend/internal/catalog/repository"
	"forwarding_portal_backend/internal/catalog/transport"
	"forwarding_portal_backend/platform/apperr"
	"forwarding_portal_backend/platform/phone"
	"forwarding_portal_backend/platform/validator"

	"github.com/google/uuid"
)

// Service implements catalog business logic.
type Service struct {
	store    repository.Store
	validate *validator.Validator
}

// New creates the catalog service.
func New(store repository.Store, validate *validator.Validator) *Service {
	return &Service{store: store, validate: validate}
}

// ListProducts returns products for the wizard's shipment step.
func (s *Service) ListProducts(ctx context.Context, req transport.ListRequest) ([]transport.Product, error) {
	return s.store.ListProducts(ctx, req.Search)
}

// UpsertProduct creates or updates a product keyed by its code.
func (s *Service) UpsertProduct(ctx context.Context, req transport.UpsertProductRequest) (transport.Product, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validate.Struct(req); err != nil {
		return transport.Product{}, apperr.Validation(err.Error())
	}

	return s.store.UpsertProduct(ctx, transport.Product{
		ID:        uuid.New(),
		Code:      req.Code,
		Name:      req.Name,
		HSCode:    strings.TrimSpace(req.HSCode),
		Hazardous: req.Hazardous,
	})
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteProduct(ctx, id)
}

// ListServices returns service items for the wizard's misc step.
func (s *Service) ListServices(ctx context.Context, req transport.ListRequest) ([]transport.ServiceItem, error) {
	return s.store.ListServices(ctx, req.Search, req.Active)
}

// UpsertService creates or updates a service item keyed by its code.
func (s *Service) UpsertService(ctx context.Context, req transport.UpsertServiceRequest) (transport.ServiceItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.ServiceItem{}, apperr.Validation(err.Error())
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	return s.store.UpsertService(ctx, transport.ServiceItem{
		ID:                    uuid.New(),
		Code:                  strings.ToUpper(strings.TrimSpace(req.Code)),
		Description:           req.Description,
		DefaultUnitPriceCents: req.DefaultUnitPriceCents,
		Active:                active,
	})
}

// DeleteService removes a service item.
func (s *Service) DeleteService(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteService(ctx, id)
}

// ListPorts returns ports for the wizard's routing steps.
func (s *Service) ListPorts(ctx context.Context, req transport.ListRequest) ([]transport.Port, error) {
	return s.store.ListPorts(ctx, req.Search)
}

// UpsertPort creates or updates a port keyed by its UN/LOCODE.
func (s *Service) UpsertPort(ctx context.Context, req transport.UpsertPortRequest) (transport.Port, error) {
	req.Locode = strings.ToUpper(strings.TrimSpace(req.Locode))
	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	if err := s.validate.Struct(req); err != nil {
		return transport.Port{}, apperr.Validation(err.Error())
	}

	return s.store.UpsertPort(ctx, transport.Port{
		ID:      uuid.New(),
		Locode:  req.Locode,
		Name:    req.Name,
		Country: req.Country,
	})
}

// DeletePort removes a port.
func (s *Service) DeletePort(ctx context.Context, id uuid.UUID) error {
	return s.store.DeletePort(ctx, id)
}

// ListContacts returns customer contacts.
func (s *Service) ListContacts(ctx context.Context, req transport.ListRequest) ([]transport.Contact, error) {
	return s.store.ListContacts(ctx, req.Search)
}

// CreateContact stores a new contact with a normalized phone number.
func (s *Service) CreateContact(ctx context.Context, req transport.UpsertContactRequest) (transport.Contact, error) {
	return s.saveContact(ctx, uuid.New(), req)
}

// UpdateContact replaces an existing contact.
func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, req transport.UpsertContactRequest) (transport.Contact, error) {
	return s.saveContact(ctx, id, req)
}

// DeleteContact removes a contact.
func (s *Service) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteContact(ctx, id)
}

func (s *Service) saveContact(ctx context.Context, id uuid.UUID, req transport.UpsertContactRequest) (transport.Contact, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.Contact{}, apperr.Validation(err.Error())
	}

	return s.store.UpsertContact(ctx, transport.Contact{
		ID:          id,
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       phone.NormalizeE164(req.Phone),
	})
}
