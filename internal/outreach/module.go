// Package outreach provides the task dispatch bounded context module.
package outreach

import (
	"leaseline_backend/internal/activity"
	apphttp "leaseline_backend/internal/http"
	"leaseline_backend/internal/notification"
	"leaseline_backend/internal/outreach/handler"
	"leaseline_backend/internal/outreach/repository"
	"leaseline_backend/internal/settings"
	"leaseline_backend/platform/logger"
	"leaseline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the outreach bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	repo     *repository.Repository
	settings *settings.Repository
}

// NewModule creates and initializes the outreach module with all its
// dependencies. The scheduler may be nil when redis is not configured; the
// due-task poller then drives execution alone.
func NewModule(pool *pgxpool.Pool, scheduler handler.TaskScheduler, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	settingsRepo := settings.New(pool)
	activityRepo := activity.New(pool)
	notifRepo := notification.New(pool)
	h := handler.New(repo, settingsRepo, activityRepo, notifRepo, scheduler, val, log)

	return &Module{
		handler:  h,
		repo:     repo,
		settings: settingsRepo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "outreach"
}

// Repository returns the repository for composition-root wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Settings returns the settings store for composition-root wiring.
func (m *Module) Settings() *settings.Repository {
	return m.settings
}

// RegisterRoutes mounts the outreach routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/outreach")
	group.POST("/tasks", m.handler.EnqueueTask)
	group.GET("/leads/:leadId/tasks", m.handler.ListLeadTasks)
	group.GET("/activity", m.handler.ActivityFeed)
	group.GET("/costs", m.handler.CostFeed)
	group.GET("/settings", m.handler.GetSettings)
	group.PUT("/settings", m.handler.UpdateSettings)
	group.GET("/notifications", m.handler.ListNotifications)
	group.POST("/notifications/:id/read", m.handler.MarkNotificationRead)
}

var _ apphttp.Module = (*Module)(nil)
