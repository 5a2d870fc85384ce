package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Communication statuses. A dispatched voice call stays "dispatched" until
// the provider's result webhook resolves it.
const (
	CommStatusDispatched = "dispatched"
	CommStatusDelivered  = "delivered"
	CommStatusCompleted  = "completed"
	CommStatusFailed     = "failed"
)

const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

type Communication struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	TaskID         *uuid.UUID
	Channel        string
	Direction      string
	Body           string
	Status         string
	ProviderRef    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type InsertCommunicationParams struct {
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	TaskID         *uuid.UUID
	Channel        string
	Direction      string
	Body           string
	Status         string
	ProviderRef    *string
}

func (r *Repository) InsertCommunication(ctx context.Context, p InsertCommunicationParams) (Communication, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO communications (
			organization_id, lead_id, task_id, channel, direction, body, status, provider_ref
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, organization_id, lead_id, task_id, channel, direction, body, status, provider_ref, created_at, updated_at
	`, p.OrganizationID, p.LeadID, p.TaskID, p.Channel, p.Direction, p.Body, p.Status, p.ProviderRef)
	return scanCommunication(row)
}

// ResolveByProviderRef updates the status of the communication the provider
// references in its result webhook.
func (r *Repository) ResolveByProviderRef(ctx context.Context, organizationID uuid.UUID, providerRef, status string) (Communication, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE communications
		SET status = $3, updated_at = now()
		WHERE organization_id = $1 AND provider_ref = $2
		RETURNING id, organization_id, lead_id, task_id, channel, direction, body, status, provider_ref, created_at, updated_at
	`, organizationID, providerRef, status)

	comm, err := scanCommunication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Communication{}, ErrNotFound
	}
	return comm, err
}

func scanCommunication(row pgx.Row) (Communication, error) {
	var comm Communication
	err := row.Scan(
		&comm.ID, &comm.OrganizationID, &comm.LeadID, &comm.TaskID, &comm.Channel,
		&comm.Direction, &comm.Body, &comm.Status, &comm.ProviderRef,
		&comm.CreatedAt, &comm.UpdatedAt,
	)
	return comm, err
}
