// Package repository provides persistence for the outreach bounded context.
// Every query is scoped by organization_id: it is the multi-tenant partition
// key on all tables.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// ErrAlreadyClaimed is returned when the conditional claim update matched no
// row: another invocation owns the task, or it is not due yet.
var ErrAlreadyClaimed = errors.New("task already claimed")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `id, organization_id, lead_id, agent_type, action_type, scheduled_for,
	attempt_number, max_attempts, status, context, executed_at, completed_at, created_at`

type EnqueueTaskParams struct {
	OrganizationID uuid.UUID
	LeadID         uuid.UUID
	AgentType      domain.AgentType
	ActionType     domain.ActionType
	ScheduledFor   time.Time
	AttemptNumber  int
	MaxAttempts    int
	Context        domain.TaskContext
}

// EnqueueTask inserts a new pending task. Retries are always new rows with
// attempt_number+1; existing rows are never re-queued.
func (r *Repository) EnqueueTask(ctx context.Context, p EnqueueTaskParams) (domain.Task, error) {
	if !domain.IsKnownAgentType(p.AgentType) {
		return domain.Task{}, apperr.Validation("unknown agent type: " + string(p.AgentType))
	}
	if p.AttemptNumber < 1 {
		p.AttemptNumber = 1
	}
	if p.MaxAttempts < p.AttemptNumber {
		p.MaxAttempts = p.AttemptNumber
	}

	contextJSON, err := json.Marshal(p.Context)
	if err != nil {
		return domain.Task{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO outreach_tasks (
			organization_id, lead_id, agent_type, action_type, scheduled_for,
			attempt_number, max_attempts, context
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		p.OrganizationID, p.LeadID, p.AgentType, p.ActionType, p.ScheduledFor,
		p.AttemptNumber, p.MaxAttempts, contextJSON,
	)
	return scanTask(row)
}

// GetTask loads a task within its organization scope.
func (r *Repository) GetTask(ctx context.Context, id, organizationID uuid.UUID) (domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM outreach_tasks
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrNotFound
	}
	return task, err
}

// ClaimTask performs the pending -> in_progress transition as an atomic
// conditional update. This is the sole concurrency control point: if the
// update matches zero rows the task was already claimed (or is not due) and
// the caller must abort without side effects.
func (r *Repository) ClaimTask(ctx context.Context, id uuid.UUID, now time.Time) (domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE outreach_tasks
		SET status = 'in_progress', executed_at = $2
		WHERE id = $1 AND status = 'pending' AND scheduled_for <= $2
		RETURNING `+taskColumns,
		id, now,
	)

	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, ErrAlreadyClaimed
	}
	return task, err
}

// FinishTask moves a claimed task to its terminal status and stamps
// completed_at. The status guard keeps the transition monotonic even if a
// buggy caller tries to finish twice.
func (r *Repository) FinishTask(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error {
	if !status.IsTerminal() {
		return apperr.Validation("finish requires a terminal status")
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE outreach_tasks
		SET status = $2, completed_at = now()
		WHERE id = $1 AND status = 'in_progress'
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelPendingTasks cancels all pending tasks of the given agent type for a
// lead. Used when an external state change (e.g., the lead rescheduled)
// makes the remaining chain redundant.
func (r *Repository) CancelPendingTasks(ctx context.Context, organizationID, leadID uuid.UUID, agentType domain.AgentType) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE outreach_tasks
		SET status = 'cancelled', completed_at = now()
		WHERE organization_id = $1 AND lead_id = $2 AND agent_type = $3 AND status = 'pending'
	`, organizationID, leadID, agentType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListDueTasks returns pending tasks whose scheduled_for has passed by at
// least the grace period. The poller uses this as a safety net behind the
// scheduled queue; duplicate pickups converge on the ClaimTask CAS.
func (r *Repository) ListDueTasks(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]domain.Task, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM outreach_tasks
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT $2
	`, now.Add(-grace), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ListTasksByLead returns a lead's tasks, newest first.
func (r *Repository) ListTasksByLead(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM outreach_tasks
		WHERE organization_id = $1 AND lead_id = $2
		ORDER BY created_at DESC
	`, organizationID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var task domain.Task
	var contextJSON []byte
	err := row.Scan(
		&task.ID, &task.OrganizationID, &task.LeadID, &task.AgentType, &task.ActionType,
		&task.ScheduledFor, &task.AttemptNumber, &task.MaxAttempts, &task.Status,
		&contextJSON, &task.ExecutedAt, &task.CompletedAt, &task.CreatedAt,
	)
	if err != nil {
		return domain.Task{}, err
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &task.Context); err != nil {
			return domain.Task{}, err
		}
	}
	return task, nil
}
