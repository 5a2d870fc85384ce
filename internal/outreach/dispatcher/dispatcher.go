// Package dispatcher executes claimed outreach tasks: goal check, compliance
// gate, channel attempts with fallback, terminal side effects and cadence
// chaining. Invocations share no in-memory state; the task store's
// conditional claim is the only coordination between them.
package dispatcher

import (
	"context"
	"time"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/channels/voice"
	"leaseline_backend/internal/notification"
	"leaseline_backend/internal/outreach/compliance"
	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the dispatcher needs, satisfied by
// *repository.Repository.
type Store interface {
	ClaimTask(ctx context.Context, id uuid.UUID, now time.Time) (domain.Task, error)
	FinishTask(ctx context.Context, id uuid.UUID, status domain.TaskStatus) error
	EnqueueTask(ctx context.Context, p repository.EnqueueTaskParams) (domain.Task, error)

	GetLead(ctx context.Context, id, organizationID uuid.UUID) (domain.Lead, error)

	GetShowing(ctx context.Context, id, organizationID uuid.UUID) (domain.Showing, error)
	IncrementConfirmationAttempts(ctx context.Context, id, organizationID uuid.UUID) (int, error)
	CancelShowing(ctx context.Context, id, organizationID uuid.UUID, reason string) error
	HasUpcomingShowing(ctx context.Context, organizationID, leadID uuid.UUID) (bool, error)
	HasAnyShowing(ctx context.Context, organizationID, leadID uuid.UUID) (bool, error)

	GetProperty(ctx context.Context, id, organizationID uuid.UUID) (domain.Property, error)
	GetPropertiesByIDs(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) ([]domain.Property, error)
	ListAvailableByBedrooms(ctx context.Context, organizationID uuid.UUID, bedrooms, limit int) ([]domain.Property, error)

	InsertCommunication(ctx context.Context, p repository.InsertCommunicationParams) (repository.Communication, error)
}

type SettingsStore interface {
	Get(ctx context.Context, organizationID uuid.UUID) (settings.OutreachSettings, error)
}

type VoiceDialer interface {
	PlaceCall(ctx context.Context, req voice.CallRequest) (string, error)
}

type SMSSender interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) (string, error)
}

type ActivityLog interface {
	Insert(ctx context.Context, p activity.InsertParams) error
	InsertCost(ctx context.Context, rec activity.CostRecord) error
}

type Notifier interface {
	Create(ctx context.Context, p notification.CreateParams) error
}

// TaskScheduler pushes a freshly enqueued task onto the delayed queue so the
// worker picks it up at scheduled_for. May be nil; the due-task poller then
// acts as the only trigger.
type TaskScheduler interface {
	ScheduleTask(ctx context.Context, task domain.Task) error
}

type Dispatcher struct {
	store     Store
	settings  SettingsStore
	gate      *compliance.Gate
	voice     VoiceDialer
	sms       SMSSender
	email     EmailSender
	activity  ActivityLog
	notifier  Notifier
	scheduler TaskScheduler
	log       *logger.Logger
	now       func() time.Time
}

type Params struct {
	Store     Store
	Settings  SettingsStore
	Gate      *compliance.Gate
	Voice     VoiceDialer
	SMS       SMSSender
	Email     EmailSender
	Activity  ActivityLog
	Notifier  Notifier
	Scheduler TaskScheduler
	Log       *logger.Logger
}

func New(p Params) *Dispatcher {
	return &Dispatcher{
		store:     p.Store,
		settings:  p.Settings,
		gate:      p.Gate,
		voice:     p.Voice,
		sms:       p.SMS,
		email:     p.Email,
		activity:  p.Activity,
		notifier:  p.Notifier,
		scheduler: p.Scheduler,
		log:       p.Log,
		now:       time.Now,
	}
}

// WithClock overrides the dispatcher's clock for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}
