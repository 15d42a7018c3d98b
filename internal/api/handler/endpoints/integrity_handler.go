package endpoints

import (
	"net/http"

	"planning"
	"planning/internal/api/events"
	"planning/internal/api/handler/mapper"
	"planning/internal/api/handler/middleware"
	"planning/internal/api/handler/response"
	"planning/internal/api/service"
	"planning/pkg"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// integrityHandler exposes drift detection and repair as first-class
// operations. These replace the one-off reconciliation scripts that used to
// poke at the database directly.
type integrityHandler struct {
	reconcileService *service.ReconcileService
	config           planning.AppConfig
	logger           zerolog.Logger
}

func newIntegrityHandler(pub *events.Publisher) *integrityHandler {
	cfg := planning.GetConfig()
	mailer := pkg.NewMailer(pkg.SmtpSettings{
		Host:     cfg.SmtpConfig.Host,
		Port:     cfg.SmtpConfig.Port,
		Username: cfg.SmtpConfig.Username,
		Password: cfg.SmtpConfig.Password,
		From:     cfg.SmtpConfig.From,
		UseTLS:   cfg.SmtpConfig.UseTLS,
	}, planning.Logger)

	return &integrityHandler{
		reconcileService: service.NewReconcileService(planning.DB, pub, planning.Logger).
			WithAlerts(mailer, cfg.AlertConfig.Recipients),
		config: cfg,
		logger: planning.Logger,
	}
}

func IntegrityHandler(router *graceful.Graceful, pub *events.Publisher) {
	h := newIntegrityHandler(pub)

	routes := router.Group("/api/v1/steps/:stepId/integrity")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.GET("", h.check)
		routes.POST("/repair", h.repair)
	}
}

// check reports snapshot/ledger drift without touching anything.
func (slf *integrityHandler) check(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}

	report, err := slf.reconcileService.DetectDrift(stepID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToDriftReport(*report))
}

// repair converges snapshot and ledger; the response carries the audit trail
// of every backfilled row.
func (slf *integrityHandler) repair(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}

	var actor *uint
	if userID != 0 {
		actor = &userID
	}

	step, audits, err := slf.reconcileService.RepairDrift(stepID, actor)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.RepairResult{
		Step:   mapper.ToStepView(*step),
		Audits: mapper.ToAuditEntries(audits),
	})
}
