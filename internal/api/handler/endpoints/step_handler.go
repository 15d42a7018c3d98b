package endpoints

import (
	"net/http"
	"strconv"

	"planning"
	"planning/internal/api/events"
	"planning/internal/api/handler/mapper"
	"planning/internal/api/handler/middleware"
	"planning/internal/api/handler/request"
	"planning/internal/api/handler/response"
	"planning/internal/api/service"
	"planning/pkg"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type stepHandler struct {
	stepService *service.StepService
	config      planning.AppConfig
	logger      zerolog.Logger
}

func newStepHandler(pub *events.Publisher) *stepHandler {
	return &stepHandler{
		stepService: service.NewStepService(planning.DB, pub, planning.Logger),
		config:      planning.GetConfig(),
		logger:      planning.Logger,
	}
}

func StepHandler(router *graceful.Graceful, pub *events.Publisher) {
	h := newStepHandler(pub)

	routes := router.Group("/api/v1/plannings/:jobId/steps")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.POST("/:stepNo/start", h.start)
		routes.POST("/:stepNo/stop", h.stop)
		routes.POST("/:stepNo/reopen", h.reopen)
	}
}

func (slf *stepHandler) start(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	jobID, stepNo, ok := stepParams(c)
	if !ok {
		return
	}

	step, err := slf.stepService.Start(jobID, stepNo, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToStepView(*step))
}

func (slf *stepHandler) stop(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	jobID, stepNo, ok := stepParams(c)
	if !ok {
		return
	}

	// Body is optional: an empty stop uses the server clock.
	var req request.StopStep
	if c.Request.ContentLength > 0 {
		if err := pkg.ParseAndValidate(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
			return
		}
	}

	step, err := slf.stepService.Stop(jobID, stepNo, req.EndDate, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToStepView(*step))
}

func (slf *stepHandler) reopen(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	jobID, stepNo, ok := stepParams(c)
	if !ok {
		return
	}

	step, err := slf.stepService.Reopen(jobID, stepNo, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToStepView(*step))
}

func stepParams(c *gin.Context) (string, int, bool) {
	jobID := c.Param("jobId")
	stepNo, err := strconv.Atoi(c.Param("stepNo"))
	if err != nil || stepNo < 1 {
		c.JSON(http.StatusBadRequest, response.APIError{Message: "stepNo must be a positive integer"})
		return "", 0, false
	}
	return jobID, stepNo, true
}
