package repository

import (
	"context"
	"errors"
	"time"

	"leaseline_backend/internal/outreach/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, organization_id, first_name, last_name, phone, email,
	sms_consent, sms_consent_at, call_consent, call_consent_at,
	do_not_contact, status, is_human_controlled, created_at, updated_at`

type CreateLeadParams struct {
	OrganizationID uuid.UUID
	FirstName      string
	LastName       string
	Phone          string
	Email          *string
	SMSConsent     bool
	CallConsent    bool
	Source         *string
}

func (r *Repository) CreateLead(ctx context.Context, p CreateLeadParams) (domain.Lead, error) {
	var smsConsentAt, callConsentAt *time.Time
	now := time.Now().UTC()
	if p.SMSConsent {
		smsConsentAt = &now
	}
	if p.CallConsent {
		callConsentAt = &now
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			organization_id, first_name, last_name, phone, email,
			sms_consent, sms_consent_at, call_consent, call_consent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+leadColumns,
		p.OrganizationID, p.FirstName, p.LastName, p.Phone, p.Email,
		p.SMSConsent, smsConsentAt, p.CallConsent, callConsentAt,
	)
	return scanLead(row)
}

func (r *Repository) GetLead(ctx context.Context, id, organizationID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateLeadStatus moves the lead through the funnel. Order is a guideline
// only, so no transition table is enforced here; unknown statuses are the
// one thing rejected.
func (r *Repository) UpdateLeadStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.LeadStatus) error {
	if !domain.IsKnownLeadStatus(status) {
		return errors.New("unknown lead status: " + string(status))
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDoNotContact flags the lead as off-limits for all automated outreach.
// Once set, every pending task for the lead fails its compliance gate.
func (r *Repository) SetDoNotContact(ctx context.Context, id, organizationID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET do_not_contact = true, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountRecentOutbound counts outbound communications dispatched to the lead
// since the cutoff. The compliance gate uses this for its frequency cap;
// only actual dispatches consume the cap.
func (r *Repository) CountRecentOutbound(ctx context.Context, organizationID, leadID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM communications
		WHERE organization_id = $1 AND lead_id = $2
		  AND direction = 'outbound' AND created_at >= $3
	`, organizationID, leadID, since).Scan(&count)
	return count, err
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.FirstName, &lead.LastName, &lead.Phone, &lead.Email,
		&lead.SMSConsent, &lead.SMSConsentAt, &lead.CallConsent, &lead.CallConsentAt,
		&lead.DoNotContact, &lead.Status, &lead.IsHumanControlled, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
