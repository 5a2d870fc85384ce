package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service names for cost records.
const (
	ServiceVoice = "voice_call"
	ServiceSMS   = "sms"
	ServiceEmail = "email"
)

// Per-unit rates in cents. SMS is billed per 153-character segment.
const (
	voiceCallCostCents  = 12.0
	smsSegmentCostCents = 1.5
	emailCostCents      = 0.1
	smsSegmentChars     = 153
)

type CostRecord struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Service        string     `json:"service"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit"`
	UnitCostCents  float64    `json:"unitCostCents"`
	TotalCostCents float64    `json:"totalCostCents"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	TaskID         *uuid.UUID `json:"taskId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CostForAction prices a dispatched action. Returns false for actions that
// carry no metered cost.
func CostForAction(action, smsBody string) (CostRecord, bool) {
	switch action {
	case "call":
		return CostRecord{Service: ServiceVoice, Quantity: 1, Unit: "call", UnitCostCents: voiceCallCostCents, TotalCostCents: voiceCallCostCents}, true
	case "sms":
		segments := float64((len(smsBody) + smsSegmentChars - 1) / smsSegmentChars)
		if segments < 1 {
			segments = 1
		}
		return CostRecord{Service: ServiceSMS, Quantity: segments, Unit: "segment", UnitCostCents: smsSegmentCostCents, TotalCostCents: segments * smsSegmentCostCents}, true
	case "email":
		return CostRecord{Service: ServiceEmail, Quantity: 1, Unit: "message", UnitCostCents: emailCostCents, TotalCostCents: emailCostCents}, true
	}
	return CostRecord{}, false
}

func (r *Repository) InsertCost(ctx context.Context, rec CostRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cost_records (
			organization_id, service, usage_quantity, usage_unit, unit_cost_cents,
			total_cost_cents, lead_id, task_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.OrganizationID, rec.Service, rec.Quantity, rec.Unit,
		rec.UnitCostCents, rec.TotalCostCents, rec.LeadID, rec.TaskID)
	return err
}

// ListCosts returns the organization's cost records, newest first.
func (r *Repository) ListCosts(ctx context.Context, organizationID uuid.UUID, limit int) ([]CostRecord, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, service, usage_quantity, usage_unit, unit_cost_cents,
			total_cost_cents, lead_id, task_id, created_at
		FROM cost_records
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]CostRecord, 0)
	for rows.Next() {
		var rec CostRecord
		if err := rows.Scan(
			&rec.ID, &rec.OrganizationID, &rec.Service, &rec.Quantity, &rec.Unit,
			&rec.UnitCostCents, &rec.TotalCostCents, &rec.LeadID, &rec.TaskID, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
