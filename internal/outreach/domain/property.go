package domain

import (
	"time"

	"github.com/google/uuid"
)

// Property is a rentable unit referenced by showings and outreach scripts.
type Property struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Address        string
	Bedrooms       int
	RentCents      int64
	IsAvailable    bool
	// AlternativeIDs is an explicit, operator-curated list of substitutes
	// offered when this property is no longer available.
	AlternativeIDs []uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
