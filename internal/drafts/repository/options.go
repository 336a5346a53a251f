package repository

import (
	"context"
	"errors"
	"fmt"

	"forwarding_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MaxOptionsPerDraft caps how many priced options one draft may carry. The
// cap is enforced here, under the draft row lock, so concurrent inserts
// cannot slip past it.
const MaxOptionsPerDraft = 3

const optionColumns = `id, draft_id, description, margin_type, margin_value, selections,
	haulage_total_cents, seafreight_total_cents, misc_total_cents,
	subtotal_cents, margin_amount_cents, grand_total_cents,
	status, is_preferred, sort_order, created_at, updated_at`

func scanOption(row pgx.Row) (Option, error) {
	var o Option
	err := row.Scan(
		&o.ID, &o.DraftID, &o.Description, &o.MarginType, &o.MarginValue, &o.Selections,
		&o.HaulageTotalCents, &o.SeafreightTotalCents, &o.MiscTotalCents,
		&o.SubtotalCents, &o.MarginAmountCents, &o.GrandTotalCents,
		&o.Status, &o.IsPreferred, &o.SortOrder, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// ListOptions returns a draft's options in sort order.
func (r *Repository) ListOptions(ctx context.Context, draftID uuid.UUID) ([]Option, error) {
	query := `SELECT ` + optionColumns + `
		FROM draft_options WHERE draft_id = $1
		ORDER BY sort_order ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var items []Option
	for rows.Next() {
		opt, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		items = append(items, opt)
	}
	return items, rows.Err()
}

// GetOption fetches one option scoped to its draft.
func (r *Repository) GetOption(ctx context.Context, draftID, optionID uuid.UUID) (Option, error) {
	query := `SELECT ` + optionColumns + ` FROM draft_options WHERE id = $1 AND draft_id = $2`

	opt, err := scanOption(r.pool.QueryRow(ctx, query, optionID, draftID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Option{}, apperr.NotFound(optionNotFoundMsg)
	}
	if err != nil {
		return Option{}, fmt.Errorf("get option: %w", err)
	}
	return opt, nil
}

// CountOptions counts the options attached to a draft.
func (r *Repository) CountOptions(ctx context.Context, draftID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM draft_options WHERE draft_id = $1`, draftID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count options: %w", err)
	}
	return count, nil
}

// InsertOption inserts a new option row. The draft row is locked while the
// siblings are counted, so two concurrent inserts cannot both observe a
// count under the cap.
func (r *Repository) InsertOption(ctx context.Context, option Option) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert option tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var version int
	err = tx.QueryRow(ctx,
		`SELECT version FROM drafts WHERE id = $1 FOR UPDATE`, option.DraftID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(draftNotFoundMsg)
	}
	if err != nil {
		return fmt.Errorf("lock draft: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM draft_options WHERE draft_id = $1`, option.DraftID).Scan(&count)
	if err != nil {
		return fmt.Errorf("count options: %w", err)
	}
	if count >= MaxOptionsPerDraft {
		return apperr.Validation(fmt.Sprintf("a draft may carry at most %d options", MaxOptionsPerDraft))
	}

	query := `
		INSERT INTO draft_options (id, draft_id, description, margin_type, margin_value, selections,
			haulage_total_cents, seafreight_total_cents, misc_total_cents,
			subtotal_cents, margin_amount_cents, grand_total_cents,
			status, is_preferred, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = tx.Exec(ctx, query,
		option.ID, option.DraftID, option.Description, option.MarginType, option.MarginValue, option.Selections,
		option.HaulageTotalCents, option.SeafreightTotalCents, option.MiscTotalCents,
		option.SubtotalCents, option.MarginAmountCents, option.GrandTotalCents,
		option.Status, option.IsPreferred, option.SortOrder, option.CreatedAt, option.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert option: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert option tx: %w", err)
	}
	return nil
}

// UpdateOption rewrites the mutable fields of an option.
func (r *Repository) UpdateOption(ctx context.Context, option Option) error {
	query := `
		UPDATE draft_options
		SET description = $1, margin_type = $2, margin_value = $3, selections = $4,
			haulage_total_cents = $5, seafreight_total_cents = $6, misc_total_cents = $7,
			subtotal_cents = $8, margin_amount_cents = $9, grand_total_cents = $10,
			status = $11, sort_order = $12, updated_at = now()
		WHERE id = $13 AND draft_id = $14`

	tag, err := r.pool.Exec(ctx, query,
		option.Description, option.MarginType, option.MarginValue, option.Selections,
		option.HaulageTotalCents, option.SeafreightTotalCents, option.MiscTotalCents,
		option.SubtotalCents, option.MarginAmountCents, option.GrandTotalCents,
		option.Status, option.SortOrder, option.ID, option.DraftID,
	)
	if err != nil {
		return fmt.Errorf("update option: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(optionNotFoundMsg)
	}
	return nil
}

// DeleteOption removes an option from a draft.
func (r *Repository) DeleteOption(ctx context.Context, draftID, optionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM draft_options WHERE id = $1 AND draft_id = $2`, optionID, draftID)
	if err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(optionNotFoundMsg)
	}
	return nil
}

// SetPreferredOption moves the preferred flag to the target option inside a
// transaction so at most one option per draft ever carries it.
func (r *Repository) SetPreferredOption(ctx context.Context, draftID, optionID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin preferred tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE draft_options SET is_preferred = false, updated_at = now()
		 WHERE draft_id = $1 AND is_preferred = true`, draftID)
	if err != nil {
		return fmt.Errorf("clear preferred: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE draft_options SET is_preferred = true, updated_at = now()
		 WHERE id = $1 AND draft_id = $2`, optionID, draftID)
	if err != nil {
		return fmt.Errorf("set preferred: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(optionNotFoundMsg)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit preferred tx: %w", err)
	}
	return nil
}
