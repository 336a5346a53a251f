// Package repository persists the quoting master data.
package repository

import (
	"context"
	"errors"
	"fmt"

	"forwarding_portal_backend/internal/catalog/transport"
	"forwarding_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store abstracts master-data persistence.
type Store interface {
	ListProducts(ctx context.Context, search string) ([]transport.Product, error)
	UpsertProduct(ctx context.Context, product transport.Product) (transport.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListServices(ctx context.Context, search string, active *bool) ([]transport.ServiceItem, error)
	UpsertService(ctx context.Context, item transport.ServiceItem) (transport.ServiceItem, error)
	DeleteService(ctx context.Context, id uuid.UUID) error

	ListPorts(ctx context.Context, search string) ([]transport.Port, error)
	UpsertPort(ctx context.Context, port transport.Port) (transport.Port, error)
	DeletePort(ctx context.Context, id uuid.UUID) error

	ListContacts(ctx context.Context, search string) ([]transport.Contact, error)
	UpsertContact(ctx context.Context, contact transport.Contact) (transport.Contact, error)
	DeleteContact(ctx context.Context, id uuid.UUID) error
}

// Repository is the pgx-backed master-data store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// ListProducts returns products matching the search text.
func (r *Repository) ListProducts(ctx context.Context, search string) ([]transport.Product, error) {
	query := `SELECT id, code, name, hs_code, hazardous, created_at, updated_at FROM catalog_products`
	args := []interface{}{}
	if search != "" {
		query += " WHERE code ILIKE $1 OR name ILIKE $1 OR hs_code ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY code ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []transport.Product
	for rows.Next() {
		var product transport.Product
		if err := rows.Scan(&product.ID, &product.Code, &product.Name, &product.HSCode,
			&product.Hazardous, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// UpsertProduct inserts or updates a product keyed by code.
func (r *Repository) UpsertProduct(ctx context.Context, product transport.Product) (transport.Product, error) {
	query := `
		INSERT INTO catalog_products (id, code, name, hs_code, hazardous, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
			hs_code = EXCLUDED.hs_code,
			hazardous = EXCLUDED.hazardous,
			updated_at = now()
		RETURNING id, code, name, hs_code, hazardous, created_at, updated_at`

	var saved transport.Product
	err := r.pool.QueryRow(ctx, query, product.ID, product.Code, product.Name,
		product.HSCode, product.Hazardous).Scan(
		&saved.ID, &saved.Code, &saved.Name, &saved.HSCode, &saved.Hazardous,
		&saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return transport.Product{}, fmt.Errorf("upsert product: %w", err)
	}
	return saved, nil
}

// DeleteProduct removes a product.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "catalog_products", "product not found", id)
}

// ListServices returns service items, optionally filtered by search text and
// active flag.
func (r *Repository) ListServices(ctx context.Context, search string, active *bool) ([]transport.ServiceItem, error) {
	query := `SELECT id, code, description, default_unit_price_cents, active, created_at, updated_at
		FROM catalog_services WHERE 1=1`
	args := []interface{}{}
	argPos := 1
	if search != "" {
		query += fmt.Sprintf(" AND (code ILIKE $%d OR description ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}
	if active != nil {
		query += fmt.Sprintf(" AND active = $%d", argPos)
		args = append(args, *active)
	}
	query += " ORDER BY code ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var items []transport.ServiceItem
	for rows.Next() {
		var item transport.ServiceItem
		if err := rows.Scan(&item.ID, &item.Code, &item.Description, &item.DefaultUnitPriceCents,
			&item.Active, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertService inserts or updates a service item keyed by code.
func (r *Repository) UpsertService(ctx context.Context, item transport.ServiceItem) (transport.ServiceItem, error) {
	query := `
		INSERT INTO catalog_services (id, code, description, default_unit_price_cents, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (code) DO UPDATE
		SET description = EXCLUDED.description,
			default_unit_price_cents = EXCLUDED.default_unit_price_cents,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING id, code, description, default_unit_price_cents, active, created_at, updated_at`

	var saved transport.ServiceItem
	err := r.pool.QueryRow(ctx, query, item.ID, item.Code, item.Description,
		item.DefaultUnitPriceCents, item.Active).Scan(
		&saved.ID, &saved.Code, &saved.Description, &saved.DefaultUnitPriceCents,
		&saved.Active, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return transport.ServiceItem{}, fmt.Errorf("upsert service: %w", err)
	}
	return saved, nil
}

// DeleteService removes a service item.
func (r *Repository) DeleteService(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "catalog_services", "service not found", id)
}

// ListPorts returns ports matching the search text.
func (r *Repository) ListPorts(ctx context.Context, search string) ([]transport.Port, error) {
	query := `SELECT id, locode, name, country, created_at, updated_at FROM catalog_ports`
	args := []interface{}{}
	if search != "" {
		query += " WHERE locode ILIKE $1 OR name ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY locode ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	defer rows.Close()

	var ports []transport.Port
	for rows.Next() {
		var port transport.Port
		if err := rows.Scan(&port.ID, &port.Locode, &port.Name, &port.Country,
			&port.CreatedAt, &port.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan port: %w", err)
		}
		ports = append(ports, port)
	}
	return ports, rows.Err()
}

// UpsertPort inserts or updates a port keyed by UN/LOCODE.
func (r *Repository) UpsertPort(ctx context.Context, port transport.Port) (transport.Port, error) {
	query := `
		INSERT INTO catalog_ports (id, locode, name, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (locode) DO UPDATE
		SET name = EXCLUDED.name, country = EXCLUDED.country, updated_at = now()
		RETURNING id, locode, name, country, created_at, updated_at`

	var saved transport.Port
	err := r.pool.QueryRow(ctx, query, port.ID, port.Locode, port.Name, port.Country).Scan(
		&saved.ID, &saved.Locode, &saved.Name, &saved.Country, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return transport.Port{}, fmt.Errorf("upsert port: %w", err)
	}
	return saved, nil
}

// DeletePort removes a port.
func (r *Repository) DeletePort(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "catalog_ports", "port not found", id)
}

// ListContacts returns contacts matching the search text.
func (r *Repository) ListContacts(ctx context.Context, search string) ([]transport.Contact, error) {
	query := `SELECT id, company_name, contact_name, email, phone, created_at, updated_at
		FROM catalog_contacts`
	args := []interface{}{}
	if search != "" {
		query += " WHERE company_name ILIKE $1 OR contact_name ILIKE $1 OR email ILIKE $1"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY company_name ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []transport.Contact
	for rows.Next() {
		var contact transport.Contact
		if err := rows.Scan(&contact.ID, &contact.CompanyName, &contact.ContactName,
			&contact.Email, &contact.Phone, &contact.CreatedAt, &contact.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

// UpsertContact inserts or updates a contact by id.
func (r *Repository) UpsertContact(ctx context.Context, contact transport.Contact) (transport.Contact, error) {
	query := `
		INSERT INTO catalog_contacts (id, company_name, contact_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET company_name = EXCLUDED.company_name,
			contact_name = EXCLUDED.contact_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			updated_at = now()
		RETURNING id, company_name, contact_name, email, phone, created_at, updated_at`

	var saved transport.Contact
	err := r.pool.QueryRow(ctx, query, contact.ID, contact.CompanyName, contact.ContactName,
		contact.Email, contact.Phone).Scan(
		&saved.ID, &saved.CompanyName, &saved.ContactName, &saved.Email, &saved.Phone,
		&saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return transport.Contact{}, fmt.Errorf("upsert contact: %w", err)
	}
	return saved, nil
}

// DeleteContact removes a contact.
func (r *Repository) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "catalog_contacts", "contact not found", id)
}

func (r *Repository) deleteByID(ctx context.Context, table, notFoundMsg string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(notFoundMsg)
		}
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notFoundMsg)
	}
	return nil
}
