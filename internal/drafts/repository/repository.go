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

// ── Domain Models ─────────────────────────────────────────────────────────────

// Draft is the database model for an in-progress quote.
// Step payloads are stored as raw JSON; the service layer owns their shape.
type Draft struct {
	ID          uuid.UUID `db:"id"`
	RequestID   string    `db:"request_id"`
	EmailUser   string    `db:"email_user"`
	RemoteID    string    `db:"remote_id"`
	Currency    string    `db:"currency"`
	Status      string    `db:"status"`
	Version     int       `db:"version"`
	Dirty       bool      `db:"dirty"`
	Customer    []byte    `db:"customer"`
	Shipment    []byte    `db:"shipment"`
	Haulage     []byte    `db:"haulage"`
	Seafreight  []byte    `db:"seafreight"`
	Misc        []byte    `db:"misc"`
	WizardState []byte    `db:"wizard_state"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Option is the database model for one priced option on a draft.
type Option struct {
	ID                   uuid.UUID `db:"id"`
	DraftID              uuid.UUID `db:"draft_id"`
	Description          string    `db:"description"`
	MarginType           string    `db:"margin_type"`
	MarginValue          int64     `db:"margin_value"`
	Selections           []byte    `db:"selections"`
	HaulageTotalCents    int64     `db:"haulage_total_cents"`
	SeafreightTotalCents int64     `db:"seafreight_total_cents"`
	MiscTotalCents       int64     `db:"misc_total_cents"`
	SubtotalCents        int64     `db:"subtotal_cents"`
	MarginAmountCents    int64     `db:"margin_amount_cents"`
	GrandTotalCents      int64     `db:"grand_total_cents"`
	Status               string    `db:"status"`
	IsPreferred          bool      `db:"is_preferred"`
	SortOrder            int       `db:"sort_order"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// ListParams contains parameters for listing drafts.
type ListParams struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing drafts.
type ListResult struct {
	Items      []Draft
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

const draftNotFoundMsg = "draft not found"
const optionNotFoundMsg = "option not found"

// stepColumns whitelists the wizard-step-to-column mapping. Anything outside
// this map never reaches SQL.
var stepColumns = map[string]string{
	"customer":   "customer",
	"shipment":   "shipment",
	"haulage":    "haulage",
	"seafreight": "seafreight",
	"misc":       "misc",
	"wizard":     "wizard_state",
}

// StepColumn resolves a wizard step name to its storage column.
func StepColumn(step string) (string, bool) {
	col, ok := stepColumns[step]
	return col, ok
}

// ── Repository ────────────────────────────────────────────────────────────────

// Repository provides database operations for drafts.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new drafts repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const draftColumns = `id, request_id, email_user, remote_id, currency, status, version, dirty,
	customer, shipment, haulage, seafreight, misc, wizard_state, created_at, updated_at`

func scanDraft(row pgx.Row) (Draft, error) {
	var d Draft
	err := row.Scan(
		&d.ID, &d.RequestID, &d.EmailUser, &d.RemoteID, &d.Currency, &d.Status, &d.Version, &d.Dirty,
		&d.Customer, &d.Shipment, &d.Haulage, &d.Seafreight, &d.Misc, &d.WizardState,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// CreateDraft inserts a new draft row.
func (r *Repository) CreateDraft(ctx context.Context, draft Draft) error {
	query := `
		INSERT INTO drafts (id, request_id, email_user, remote_id, currency, status, version, dirty,
			customer, shipment, haulage, seafreight, misc, wizard_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		draft.ID, draft.RequestID, draft.EmailUser, draft.RemoteID, draft.Currency, draft.Status,
		draft.Version, draft.Dirty,
		draft.Customer, draft.Shipment, draft.Haulage, draft.Seafreight, draft.Misc, draft.WizardState,
		draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

// GetDraft fetches a draft by id.
func (r *Repository) GetDraft(ctx context.Context, id uuid.UUID) (Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`

	draft, err := scanDraft(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Draft{}, apperr.NotFound(draftNotFoundMsg)
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}
	return draft, nil
}

// ListDrafts returns a filtered, paginated draft listing.
func (r *Repository) ListDrafts(ctx context.Context, params ListParams) (ListResult, error) {
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
		where += fmt.Sprintf(" AND (request_id ILIKE $%d OR email_user ILIKE $%d OR customer->>'companyName' ILIKE $%d)", argPos, argPos, argPos)
		args = append(args, "%"+params.Search+"%")
		argPos++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM drafts " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count drafts: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT "+draftColumns+" FROM drafts %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d",
		where, argPos, argPos+1,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	items := make([]Draft, 0, pageSize)
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan draft: %w", err)
		}
		items = append(items, draft)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list drafts rows: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// DeleteDraft removes a draft and its options.
func (r *Repository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(draftNotFoundMsg)
	}
	return nil
}

// UpdateStepPayload replaces one step payload under the version guard.
// A stale version yields a Conflict carrying the current version in details.
func (r *Repository) UpdateStepPayload(ctx context.Context, id uuid.UUID, step string, payload []byte, expectedVersion int) (int, error) {
	column, ok := StepColumn(step)
	if !ok {
		return 0, apperr.Validation("unknown wizard step: " + step)
	}

	query := fmt.Sprintf(`
		UPDATE drafts
		SET %s = $1, version = version + 1, dirty = true, updated_at = now()
		WHERE id = $2 AND version = $3
		RETURNING version`, column)

	var newVersion int
	err := r.pool.QueryRow(ctx, query, payload, id, expectedVersion).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, r.versionConflict(ctx, id)
	}
	if err != nil {
		return 0, fmt.Errorf("update step %s: %w", step, err)
	}
	return newVersion, nil
}

// ReplaceStepPayloads overwrites every provided step column in one statement.
// Used by pull sync, which intentionally clobbers local step state.
func (r *Repository) ReplaceStepPayloads(ctx context.Context, id uuid.UUID, payloads map[string][]byte) (int, error) {
	set := "version = version + 1, updated_at = now()"
	args := []interface{}{id}
	argPos := 2
	for step, payload := range payloads {
		column, ok := StepColumn(step)
		if !ok {
			return 0, apperr.Validation("unknown wizard step: " + step)
		}
		set += fmt.Sprintf(", %s = $%d", column, argPos)
		args = append(args, payload)
		argPos++
	}

	query := fmt.Sprintf(`UPDATE drafts SET %s WHERE id = $1 RETURNING version`, set)

	var newVersion int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound(draftNotFoundMsg)
	}
	if err != nil {
		return 0, fmt.Errorf("replace steps: %w", err)
	}
	return newVersion, nil
}

// SetRemoteID records the upstream identifier for a draft.
func (r *Repository) SetRemoteID(ctx context.Context, id uuid.UUID, remoteID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE drafts SET remote_id = $1, updated_at = now() WHERE id = $2`, remoteID, id)
	if err != nil {
		return fmt.Errorf("set remote id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(draftNotFoundMsg)
	}
	return nil
}

// MarkDirty flags the draft as having unsynced local changes.
func (r *Repository) MarkDirty(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE drafts SET dirty = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark dirty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(draftNotFoundMsg)
	}
	return nil
}

// ClearDirty resets the dirty flag, but only if the version is unchanged
// since the push started.
func (r *Repository) ClearDirty(ctx context.Context, id uuid.UUID, version int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE drafts SET dirty = false WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("clear dirty: %w", err)
	}
	return nil
}

// ListDirtyDrafts returns open drafts with unsynced changes, oldest first.
func (r *Repository) ListDirtyDrafts(ctx context.Context, limit int) ([]Draft, error) {
	if limit < 1 {
		limit = 50
	}

	query := `SELECT ` + draftColumns + `
		FROM drafts WHERE dirty = true AND status = 'open'
		ORDER BY updated_at ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list dirty drafts: %w", err)
	}
	defer rows.Close()

	var items []Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dirty draft: %w", err)
		}
		items = append(items, draft)
	}
	return items, rows.Err()
}

// SetDraftStatus updates the lifecycle status of a draft.
func (r *Repository) SetDraftStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE drafts SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("set draft status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(draftNotFoundMsg)
	}
	return nil
}

func (r *Repository) versionConflict(ctx context.Context, id uuid.UUID) error {
	var currentVersion int
	err := r.pool.QueryRow(ctx, `SELECT version FROM drafts WHERE id = $1`, id).Scan(&currentVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(draftNotFoundMsg)
	}
	if err != nil {
		return fmt.Errorf("check draft version: %w", err)
	}
	return apperr.Conflict("draft was modified concurrently").
		WithDetails(map[string]int{"currentVersion": currentVersion})
}
