// Package transport defines the master-data API request and response shapes.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Product is a commodity the shipment step can reference.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	HSCode    string    `json:"hsCode"`
	Hazardous bool      `json:"hazardous"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpsertProductRequest creates or updates a product.
type UpsertProductRequest struct {
	Code      string `json:"code" validate:"required,max=32"`
	Name      string `json:"name" validate:"required"`
	HSCode    string `json:"hsCode" validate:"omitempty,max=10"`
	Hazardous bool   `json:"hazardous"`
}

// ServiceItem is a sellable ancillary service (customs clearance,
// documentation, inspection, ...).
type ServiceItem struct {
	ID                    uuid.UUID `json:"id"`
	Code                  string    `json:"code"`
	Description           string    `json:"description"`
	DefaultUnitPriceCents int64     `json:"defaultUnitPriceCents"`
	Active                bool      `json:"active"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// UpsertServiceRequest creates or updates a service item.
type UpsertServiceRequest struct {
	Code                  string `json:"code" validate:"required,max=32"`
	Description           string `json:"description" validate:"required"`
	DefaultUnitPriceCents int64  `json:"defaultUnitPriceCents" validate:"min=0"`
	Active                *bool  `json:"active"`
}

// Port is a seaport the quoting wizard can route through.
type Port struct {
	ID        uuid.UUID `json:"id"`
	Locode    string    `json:"locode"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpsertPortRequest creates or updates a port.
type UpsertPortRequest struct {
	Locode  string `json:"locode" validate:"required,len=5,uppercase"`
	Name    string `json:"name" validate:"required"`
	Country string `json:"country" validate:"required,len=2,uppercase"`
}

// Contact is a customer contact used to pre-fill the wizard.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"companyName"`
	ContactName string    `json:"contactName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UpsertContactRequest creates or updates a contact. The phone number is
// normalized to E.164 before storage.
type UpsertContactRequest struct {
	CompanyName string `json:"companyName" validate:"required"`
	ContactName string `json:"contactName"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
}

// ListRequest is the shared query shape for catalog listings.
type ListRequest struct {
	Search string `form:"search"`
	Active *bool  `form:"active"`
}
