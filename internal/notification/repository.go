// Package notification stores in-app notifications surfaced to operators
// when automated outreach needs a human decision.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Categories.
const (
	CategoryInfo   = "info"
	CategoryAction = "action_required"
	CategoryAlert  = "alert"
)

type Notification struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	ResourceID     *uuid.UUID `json:"resourceId,omitempty"`
	ResourceType   string     `json:"resourceType,omitempty"`
	Category       string     `json:"category"`
	IsRead         bool       `json:"isRead"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type CreateParams struct {
	OrganizationID uuid.UUID
	Title          string
	Content        string
	ResourceID     *uuid.UUID
	ResourceType   string
	Category       string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) error {
	if p.Category == "" {
		p.Category = CategoryInfo
	}
	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO operator_notifications (
			organization_id, title, content, resource_id, resource_type, category
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, p.OrganizationID, p.Title, p.Content, p.ResourceID, resourceType, p.Category)
	return err
}

// ListUnread returns unread notifications, newest first.
func (r *Repository) ListUnread(ctx context.Context, organizationID uuid.UUID, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 25
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, title, content, resource_id,
			COALESCE(resource_type, ''), category, is_read, created_at
		FROM operator_notifications
		WHERE organization_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.OrganizationID, &n.Title, &n.Content, &n.ResourceID,
			&n.ResourceType, &n.Category, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, organizationID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE operator_notifications SET is_read = TRUE
		WHERE organization_id = $1 AND id = $2
	`, organizationID, id)
	return err
}
