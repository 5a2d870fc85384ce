package repository

import (
	"context"
	"errors"

	"leaseline_backend/internal/outreach/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const showingColumns = `id, organization_id, lead_id, property_id, scheduled_at, duration_minutes,
	status, confirmation_attempts, cancellation_reason, created_at, updated_at`

func (r *Repository) GetShowing(ctx context.Context, id, organizationID uuid.UUID) (domain.Showing, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+showingColumns+`
		FROM showings
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	showing, err := scanShowing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Showing{}, ErrNotFound
	}
	return showing, err
}

// UpdateShowingStatus applies a lifecycle transition, enforcing the state
// machine and the rule that a past showing cannot become confirmed.
func (r *Repository) UpdateShowingStatus(ctx context.Context, id, organizationID uuid.UUID, next domain.ShowingStatus) error {
	showing, err := r.GetShowing(ctx, id, organizationID)
	if err != nil {
		return err
	}

	if !showing.Status.CanTransitionTo(next) {
		return errors.New("illegal showing transition: " + string(showing.Status) + " -> " + string(next))
	}

	query := `
		UPDATE showings
		SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND status = $4`
	args := []any{id, organizationID, next, showing.Status}
	if next == domain.ShowingConfirmed {
		query += ` AND scheduled_at > now()`
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementConfirmationAttempts bumps the counter and returns the new value.
func (r *Repository) IncrementConfirmationAttempts(ctx context.Context, id, organizationID uuid.UUID) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE showings
		SET confirmation_attempts = confirmation_attempts + 1, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING confirmation_attempts
	`, id, organizationID).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return attempts, err
}

// CancelShowing moves a non-terminal showing to cancelled with a reason.
func (r *Repository) CancelShowing(ctx context.Context, id, organizationID uuid.UUID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE showings
		SET status = 'cancelled', cancellation_reason = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND status IN ('scheduled', 'confirmed')
	`, id, organizationID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasUpcomingShowing reports whether the lead has any showing in scheduled
// or confirmed state. Used for the no-show "already rescheduled"
// short-circuit and the recapture goal check.
func (r *Repository) HasUpcomingShowing(ctx context.Context, organizationID, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM showings
			WHERE organization_id = $1 AND lead_id = $2 AND status IN ('scheduled', 'confirmed')
		)
	`, organizationID, leadID).Scan(&exists)
	return exists, err
}

// HasAnyShowing reports whether the lead ever had a showing booked.
func (r *Repository) HasAnyShowing(ctx context.Context, organizationID, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM showings
			WHERE organization_id = $1 AND lead_id = $2
		)
	`, organizationID, leadID).Scan(&exists)
	return exists, err
}

func scanShowing(row pgx.Row) (domain.Showing, error) {
	var showing domain.Showing
	err := row.Scan(
		&showing.ID, &showing.OrganizationID, &showing.LeadID, &showing.PropertyID,
		&showing.ScheduledAt, &showing.DurationMinutes, &showing.Status,
		&showing.ConfirmationAttempts, &showing.CancellationReason,
		&showing.CreatedAt, &showing.UpdatedAt,
	)
	return showing, err
}
