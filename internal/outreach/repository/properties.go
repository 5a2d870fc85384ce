package repository

import (
	"context"
	"errors"

	"leaseline_backend/internal/outreach/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const propertyColumns = `id, organization_id, name, address, bedrooms, rent_cents,
	is_available, alternative_property_ids, created_at, updated_at`

func (r *Repository) GetProperty(ctx context.Context, id, organizationID uuid.UUID) (domain.Property, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	property, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, ErrNotFound
	}
	return property, err
}

// GetPropertiesByIDs resolves an explicit alternatives list, keeping only
// available units and preserving the curated order.
func (r *Repository) GetPropertiesByIDs(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) ([]domain.Property, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE organization_id = $1 AND id = ANY($2) AND is_available = true
	`, organizationID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]domain.Property, len(ids))
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		byID[property.ID] = property
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	ordered := make([]domain.Property, 0, len(byID))
	for _, id := range ids {
		if property, ok := byID[id]; ok {
			ordered = append(ordered, property)
		}
	}
	return ordered, nil
}

// ListAvailableByBedrooms returns available properties with the given
// bedroom count, cheapest first.
func (r *Repository) ListAvailableByBedrooms(ctx context.Context, organizationID uuid.UUID, bedrooms, limit int) ([]domain.Property, error) {
	if limit < 1 {
		limit = 3
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE organization_id = $1 AND bedrooms = $2 AND is_available = true
		ORDER BY rent_cents ASC
		LIMIT $3
	`, organizationID, bedrooms, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []domain.Property
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}
	return properties, rows.Err()
}

func scanProperty(row pgx.Row) (domain.Property, error) {
	var property domain.Property
	err := row.Scan(
		&property.ID, &property.OrganizationID, &property.Name, &property.Address,
		&property.Bedrooms, &property.RentCents, &property.IsAvailable,
		&property.AlternativeIDs, &property.CreatedAt, &property.UpdatedAt,
	)
	return property, err
}
