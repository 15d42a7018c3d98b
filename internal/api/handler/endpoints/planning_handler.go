package endpoints

import (
	"net/http"

	"planning"
	"planning/internal/api/apperr"
	"planning/internal/api/events"
	"planning/internal/api/handler/mapper"
	"planning/internal/api/handler/middleware"
	"planning/internal/api/handler/request"
	"planning/internal/api/handler/response"
	"planning/internal/api/models"
	"planning/internal/api/service"
	"planning/pkg"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type planningHandler struct {
	planningService *service.PlanningService
	viewService     *service.ViewService
	config          planning.AppConfig
	logger          zerolog.Logger
}

func newPlanningHandler(pub *events.Publisher) *planningHandler {
	return &planningHandler{
		planningService: service.NewPlanningService(planning.DB, planning.Logger),
		viewService:     service.NewViewService(planning.DB, pub, planning.Logger),
		config:          planning.GetConfig(),
		logger:          planning.Logger,
	}
}

func PlanningHandler(router *graceful.Graceful, pub *events.Publisher) {
	h := newPlanningHandler(pub)

	routes := router.Group("/api/v1/plannings")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.POST("", h.create)
		routes.GET("/:jobId", h.getByJobID)
		routes.DELETE("/:jobId", h.delete)
	}
}

// create registers a job planning with its ordered steps.
func (slf *planningHandler) create(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}

	var req request.CreatePlanning
	if err := pkg.ParseAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	policy, ok := models.ParseSequencingPolicy(req.SequencingPolicy)
	if !ok {
		writeError(c, &apperr.ValidationError{Field: "sequencingPolicy", Reason: "must be strict, pipeline or parallel"})
		return
	}

	stepDefs := make([]models.StepDef, len(req.Steps))
	for i, d := range req.Steps {
		stepDefs[i] = models.StepDef{StepNo: d.StepNo, StepName: d.StepName}
	}

	created, err := slf.planningService.Create(req.JobID, models.JobDemand(req.JobDemand), policy, stepDefs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mapper.ToJobView(*created))
}

// getByJobID returns the planning with freshly reconciled snapshots.
func (slf *planningHandler) getByJobID(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}

	view, err := slf.viewService.GetJobView(c.Param("jobId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToJobView(*view))
}

// delete removes a planning and its history. Explicit only.
func (slf *planningHandler) delete(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}

	if err := slf.planningService.Delete(c.Param("jobId")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
