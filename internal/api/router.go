// Package api serves the compliance data and the engine's notifications
// over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nhle/compliance-notifier/internal/cache"
	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/scheduler"
	"github.com/nhle/compliance-notifier/internal/store"
)

// SchedulerControl exposes the scheduler to operators.
type SchedulerControl interface {
	Status() scheduler.Status
	RunNow(ctx context.Context) (engine.Report, error)
}

// Options wires a Handler. Store and Secret are required.
type Options struct {
	Store     store.Store
	Stats     *cache.Stats
	Scheduler SchedulerControl
	Secret    []byte
	Timeout   time.Duration
	Now       func() time.Time
	Logger    logrus.FieldLogger

	// DueSoonDays is the stats window used when Stats is nil.
	DueSoonDays int
}

// Handler holds the dependencies shared by every route.
type Handler struct {
	store     store.Store
	stats     *cache.Stats
	scheduler SchedulerControl
	now       func() time.Time
	log       logrus.FieldLogger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Stats == nil {
		opts.Stats = cache.NewStats(nil, opts.Store, 0, opts.DueSoonDays, opts.Logger)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	h := &Handler{
		store:     opts.Store,
		stats:     opts.Stats,
		scheduler: opts.Scheduler,
		now:       opts.Now,
		log:       opts.Logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Logger(opts.Logger))
	router.Use(Timeout(opts.Timeout))

	router.GET("/health", h.Health)

	api := router.Group("/api/v1", Authenticate(opts.Secret))
	{
		tasks := api.Group("/tasks")
		{
			tasks.GET("", h.ListTasks)
			tasks.POST("", h.CreateTask)
			tasks.GET("/:id", h.GetTask)
			tasks.PUT("/:id", h.UpdateTask)
			tasks.DELETE("/:id", h.DeleteTask)
			tasks.GET("/:id/notifications", h.ListTaskNotifications)
		}

		api.GET("/dashboard/stats", h.DashboardStats)

		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.ListNotifications)
			notifications.GET("/:id", h.GetNotification)
			notifications.POST("/:id/read", h.MarkRead)
			notifications.POST("/:id/action", h.MarkActioned)
			notifications.POST("/:id/dismiss", h.Dismiss)
			notifications.GET("/:id/logs", h.ListNotificationLogs)
		}

		settings := api.Group("/settings")
		{
			settings.GET("", h.ListSettings)
			settings.POST("", h.CreateSettings)
			settings.PUT("/:id", h.UpdateSettings)
		}

		levels := api.Group("/escalation-levels")
		{
			levels.GET("", h.ListEscalationLevels)
			levels.POST("", RequireAdmin(), h.CreateEscalationLevel)
			levels.PUT("/:id", RequireAdmin(), h.UpdateEscalationLevel)
			levels.DELETE("/:id", RequireAdmin(), h.DeleteEscalationLevel)
		}

		templates := api.Group("/message-templates")
		{
			templates.GET("", h.ListMessageTemplates)
			templates.POST("", RequireAdmin(), h.CreateMessageTemplate)
			templates.PUT("/:id", RequireAdmin(), h.UpdateMessageTemplate)
			templates.DELETE("/:id", RequireAdmin(), h.DeleteMessageTemplate)
		}

		users := api.Group("/users")
		{
			users.GET("", RequireAdmin(), h.ListUsers)
			users.GET("/me", h.CurrentUser)
		}

		admin := api.Group("/scheduler", RequireAdmin())
		{
			admin.GET("", h.SchedulerStatus)
			admin.POST("/run", h.RunScheduler)
		}
	}

	return router
}

// NewServer wraps handler in an http.Server configured from cfg.
func NewServer(cfg model.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Health reports liveness plus the scheduler snapshot when one is wired.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "time": h.now().UTC()}
	if h.scheduler != nil {
		body["scheduler"] = h.scheduler.Status()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) SchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// RunScheduler triggers an immediate tick and returns its report.
func (h *Handler) RunScheduler(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not running"})
		return
	}
	report, err := h.scheduler.RunNow(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.stats.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, report)
}
