// Package activity provides the append-only audit and cost logs. Entries
// are written unconditionally for every task outcome and never mutated.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
	StatusPartial = "partial"
)

type Entry struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organizationId"`
	AgentType      string          `json:"agentType"`
	Action         string          `json:"action"`
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	Details        json.RawMessage `json:"details"`
	LeadID         *uuid.UUID      `json:"leadId,omitempty"`
	ShowingID      *uuid.UUID      `json:"showingId,omitempty"`
	TaskID         *uuid.UUID      `json:"taskId,omitempty"`
	DurationMS     int64           `json:"durationMs"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type InsertParams struct {
	OrganizationID uuid.UUID
	AgentType      string
	Action         string
	Status         string
	Message        string
	Details        any
	LeadID         *uuid.UUID
	ShowingID      *uuid.UUID
	TaskID         *uuid.UUID
	Duration       time.Duration
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, p InsertParams) error {
	details := []byte(`{}`)
	if p.Details != nil {
		if b, err := json.Marshal(p.Details); err == nil {
			details = b
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (
			organization_id, agent_type, action, status, message, details,
			lead_id, showing_id, task_id, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.OrganizationID, p.AgentType, p.Action, p.Status, p.Message, details,
		p.LeadID, p.ShowingID, p.TaskID, p.Duration.Milliseconds())
	return err
}

// List returns the organization's activity stream, newest first.
func (r *Repository) List(ctx context.Context, organizationID uuid.UUID, limit int) ([]Entry, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, agent_type, action, status, message, details,
			lead_id, showing_id, task_id, duration_ms, created_at
		FROM activity_log
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.AgentType, &e.Action, &e.Status, &e.Message,
			&e.Details, &e.LeadID, &e.ShowingID, &e.TaskID, &e.DurationMS, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
