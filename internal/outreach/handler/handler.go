// Package handler exposes the outreach HTTP endpoints: task enqueueing,
// task listings and the activity/cost streams.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"leaseline_backend/internal/activity"
	"leaseline_backend/internal/notification"
	"leaseline_backend/internal/outreach/cadence"
	"leaseline_backend/internal/outreach/domain"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/outreach/transport"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/apperr"
	"leaseline_backend/platform/httpkit"
	"leaseline_backend/platform/logger"
	"leaseline_backend/platform/phone"
	"leaseline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskScheduler queues an enqueued task for execution at scheduled_for.
type TaskScheduler interface {
	ScheduleTask(ctx context.Context, task domain.Task) error
}

type SettingsStore interface {
	Get(ctx context.Context, organizationID uuid.UUID) (settings.OutreachSettings, error)
	Upsert(ctx context.Context, organizationID uuid.UUID, s settings.OutreachSettings) error
}

type Handler struct {
	repo      *repository.Repository
	settings  SettingsStore
	activity  *activity.Repository
	notifs    *notification.Repository
	scheduler TaskScheduler
	val       *validator.Validator
	log       *logger.Logger
}

func New(repo *repository.Repository, settingsStore SettingsStore, activityRepo *activity.Repository, notifs *notification.Repository, scheduler TaskScheduler, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		repo:      repo,
		settings:  settingsStore,
		activity:  activityRepo,
		notifs:    notifs,
		scheduler: scheduler,
		val:       val,
		log:       log,
	}
}

// EnqueueTask schedules a new outreach task.
// POST /api/v1/outreach/tasks
func (h *Handler) EnqueueTask(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req transport.EnqueueTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	agentType := domain.AgentType(req.AgentType)
	behavior, ok := domain.BehaviorFor(agentType)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "unknown agent type", req.AgentType)
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	orgID := identity.OrganizationID()
	lead, err := h.repo.GetLead(c.Request.Context(), leadID, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			httpkit.Error(c, http.StatusNotFound, "lead not found", nil)
			return
		}
		_ = httpkit.HandleError(c, err)
		return
	}
	if err := admitLead(behavior, lead); err != nil {
		_ = httpkit.HandleError(c, err)
		return
	}

	orgSettings, err := h.settings.Get(c.Request.Context(), orgID)
	if httpkit.HandleError(c, err) {
		return
	}

	scheduledFor := time.Now()
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	taskCtx, err := parseTaskContext(req.Context)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	task, err := h.repo.EnqueueTask(c.Request.Context(), repository.EnqueueTaskParams{
		OrganizationID: orgID,
		LeadID:         leadID,
		AgentType:      agentType,
		ActionType:     behavior.Primary,
		ScheduledFor:   scheduledFor,
		AttemptNumber:  1,
		MaxAttempts:    cadence.MaxAttempts(agentType, orgSettings),
		Context:        taskCtx,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	if h.scheduler != nil {
		if err := h.scheduler.ScheduleTask(c.Request.Context(), task); err != nil {
			h.log.Error("schedule enqueued task failed", "task_id", task.ID.String(), "error", err.Error())
		}
	}

	c.JSON(http.StatusCreated, transport.NewTaskResponse(task))
}

// ListLeadTasks returns a lead's tasks, newest first.
// GET /api/v1/outreach/leads/:leadId/tasks
func (h *Handler) ListLeadTasks(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	tasks, err := h.repo.ListTasksByLead(c.Request.Context(), identity.OrganizationID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewTaskResponses(tasks))
}

// ActivityFeed returns the organization's activity stream.
// GET /api/v1/outreach/activity
func (h *Handler) ActivityFeed(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	entries, err := h.activity.List(c.Request.Context(), identity.OrganizationID(), queryLimit(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, entries)
}

// CostFeed returns the organization's cost records.
// GET /api/v1/outreach/costs
func (h *Handler) CostFeed(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	records, err := h.activity.ListCosts(c.Request.Context(), identity.OrganizationID(), queryLimit(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, records)
}

// GetSettings returns the organization's merged outreach settings.
// GET /api/v1/outreach/settings
func (h *Handler) GetSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	s, err := h.settings.Get(c.Request.Context(), identity.OrganizationID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, s)
}

// UpdateSettings stores the organization's outreach setting overrides.
// PUT /api/v1/outreach/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var s settings.OutreachSettings
	if err := c.ShouldBindJSON(&s); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.settings.Upsert(c.Request.Context(), identity.OrganizationID(), s); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, s)
}

// ListNotifications returns unread operator notifications.
// GET /api/v1/outreach/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	items, err := h.notifs.ListUnread(c.Request.Context(), identity.OrganizationID(), queryLimit(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, items)
}

// MarkNotificationRead acknowledges one notification.
// POST /api/v1/outreach/notifications/:id/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	if err := h.notifs.MarkRead(c.Request.Context(), identity.OrganizationID(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "read"})
}

// admitLead rejects enqueues that could never dispatch: leads blocked from
// automated contact, and phone-channel behaviors without a dialable number.
// Operator notifications are internal and never gated.
func admitLead(behavior domain.Behavior, lead domain.Lead) error {
	if behavior.Primary == domain.ActionNotify {
		return nil
	}
	if lead.DoNotContact {
		return apperr.ComplianceBlocked("lead has opted out of automated contact")
	}
	if lead.IsHumanControlled {
		return apperr.ComplianceBlocked("lead is under human control")
	}
	if usesPhone(behavior) && !phone.IsDialable(lead.Phone) {
		return apperr.Validation("lead phone number is not dialable")
	}
	return nil
}

func usesPhone(b domain.Behavior) bool {
	return b.Primary == domain.ActionCall || b.Primary == domain.ActionSMS ||
		b.Fallback == domain.ActionCall || b.Fallback == domain.ActionSMS
}

func parseTaskContext(tc transport.TaskContext) (domain.TaskContext, error) {
	var out domain.TaskContext
	out.Source = tc.Source

	if tc.ShowingID != nil {
		id, err := uuid.Parse(*tc.ShowingID)
		if err != nil {
			return domain.TaskContext{}, errors.New("invalid showing id")
		}
		out.ShowingID = &id
	}
	if tc.PropertyID != nil {
		id, err := uuid.Parse(*tc.PropertyID)
		if err != nil {
			return domain.TaskContext{}, errors.New("invalid property id")
		}
		out.PropertyID = &id
	}
	return out, nil
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		return 50
	}
	return limit
}
