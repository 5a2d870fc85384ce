package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const settingsKey = "outreach"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the organization's outreach settings: stored overrides merged
// over Defaults. A missing row yields the defaults.
func (r *Repository) Get(ctx context.Context, organizationID uuid.UUID) (OutreachSettings, error) {
	merged := Defaults()

	var value []byte
	err := r.pool.QueryRow(ctx, `
		SELECT value
		FROM organization_settings
		WHERE organization_id = $1 AND key = $2
	`, organizationID, settingsKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		// No stored overrides is the common case for new organizations.
		return merged, nil
	}
	if err != nil {
		return OutreachSettings{}, err
	}

	if err := json.Unmarshal(value, &merged); err != nil {
		return Defaults(), err
	}
	return merged, nil
}

// Upsert stores the organization's outreach settings as a single JSONB
// document under the outreach key.
func (r *Repository) Upsert(ctx context.Context, organizationID uuid.UUID, s OutreachSettings) error {
	value, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO organization_settings (organization_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, organizationID, settingsKey, value)
	return err
}
