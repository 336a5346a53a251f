// Package repository persists finalized quotes and the yearly quote counter.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forwarding_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Quote is the database model for a finalized quote. The chosen option is
// snapshotted as JSON so later draft edits cannot rewrite history.
type Quote struct {
	ID                   uuid.UUID  `db:"id"`
	DraftID              uuid.UUID  `db:"draft_id"`
	QuoteNumber          string     `db:"quote_number"`
	CustomerName         string     `db:"customer_name"`
	CustomerEmail        string     `db:"customer_email"`
	Route                string     `db:"route"`
	Currency             string     `db:"currency"`
	OptionSnapshot       []byte     `db:"option_snapshot"`
	HaulageTotalCents    int64      `db:"haulage_total_cents"`
	SeafreightTotalCents int64      `db:"seafreight_total_cents"`
	MiscTotalCents       int64      `db:"misc_total_cents"`
	SubtotalCents        int64      `db:"subtotal_cents"`
	MarginAmountCents    int64      `db:"margin_amount_cents"`
	GrandTotalCents      int64      `db:"grand_total_cents"`
	Status               string     `db:"status"`
	ValidUntil           *time.Time `db:"valid_until"`
	SentAt               *time.Time `db:"sent_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// ListParams filters the quote listing.
type ListParams struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// ListResult is a paginated page of quotes.
type ListResult struct {
	Items      []Quote
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Store abstracts quote persistence.
type Store interface {
	Create(ctx context.Context, quote Quote) error
	Get(ctx context.Context, id uuid.UUID) (Quote, error)
	GetByDraft(ctx context.Context, draftID uuid.UUID) (Quote, error)
	List(ctx context.Context, params ListParams) (ListResult, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time) error
	NextQuoteNumber(ctx context.Context, year int) (int, error)
}

const quoteNotFoundMsg = "quote not found"

// Repository is the pgx-backed quote store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const quoteColumns = `id, draft_id, quote_number, customer_name, customer_email, route, currency,
	option_snapshot, haulage_total_cents, seafreight_total_cents, misc_total_cents,
	subtotal_cents, margin_amount_cents, grand_total_cents,
	status, valid_until, sent_at, created_at, updated_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.DraftID, &q.QuoteNumber, &q.CustomerName, &q.CustomerEmail, &q.Route, &q.Currency,
		&q.OptionSnapshot, &q.HaulageTotalCents, &q.SeafreightTotalCents, &q.MiscTotalCents,
		&q.SubtotalCents, &q.MarginAmountCents, &q.GrandTotalCents,
		&q.Status, &q.ValidUntil, &q.SentAt, &q.CreatedAt, &q.UpdatedAt,
	)
	return q, err
}

// Create inserts a quote.
func (r *Repository) Create(ctx context.Context, quote Quote) error {
	query := `
		INSERT INTO quotes (id, draft_id, quote_number, customer_name, customer_email, route, currency,
			option_snapshot, haulage_total_cents, seafreight_total_cents, misc_total_cents,
			subtotal_cents, margin_amount_cents, grand_total_cents,
			status, valid_until, sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		quote.ID, quote.DraftID, quote.QuoteNumber, quote.CustomerName, quote.CustomerEmail,
		quote.Route, quote.Currency,
		quote.OptionSnapshot, quote.HaulageTotalCents, quote.SeafreightTotalCents, quote.MiscTotalCents,
		quote.SubtotalCents, quote.MarginAmountCents, quote.GrandTotalCents,
		quote.Status, quote.ValidUntil, quote.SentAt, quote.CreatedAt, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create quote: %w", err)
	}
	return nil
}

// Get fetches a quote by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Quote, error) {
	quote, err := scanQuote(r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.NotFound(quoteNotFoundMsg)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote: %w", err)
	}
	return quote, nil
}

// GetByDraft fetches the quote created from a draft, if any.
func (r *Repository) GetByDraft(ctx context.Context, draftID uuid.UUID) (Quote, error) {
	quote, err := scanQuote(r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE draft_id = $1`, draftID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.NotFound(quoteNotFoundMsg)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote by draft: %w", err)
	}
	return quote, nil
}

// List returns a filtered, paginated quote listing.
func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if params.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, params.Status)
		argPos++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND (quote_number ILIKE $%d OR customer_name ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+params.Search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+where, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count quotes: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT "+quoteColumns+" FROM quotes %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, argPos, argPos+1,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]Quote, 0, pageSize)
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan quote: %w", err)
		}
		items = append(items, quote)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list quotes rows: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// SetStatus updates the workflow status, stamping sent_at when provided.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quotes SET status = $1, sent_at = COALESCE($2, sent_at), updated_at = now() WHERE id = $3`,
		status, sentAt, id)
	if err != nil {
		return fmt.Errorf("set quote status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

// NextQuoteNumber atomically increments and returns the per-year counter.
func (r *Repository) NextQuoteNumber(ctx context.Context, year int) (int, error) {
	var counter int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quote_counters (year, counter) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET counter = quote_counters.counter + 1
		RETURNING counter`, year).Scan(&counter)
	if err != nil {
		return 0, fmt.Errorf("next quote number: %w", err)
	}
	return counter, nil
}
