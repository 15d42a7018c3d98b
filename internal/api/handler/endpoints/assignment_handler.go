package endpoints

import (
	"net/http"
	"strconv"

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

type assignmentHandler struct {
	assignmentService *service.AssignmentService
	config            planning.AppConfig
	logger            zerolog.Logger
}

func newAssignmentHandler(pub *events.Publisher) *assignmentHandler {
	cache := pkg.NewCache(planning.Redis, service.MachineCacheTTL)
	return &assignmentHandler{
		assignmentService: service.NewAssignmentService(planning.DB, cache, pub, planning.Logger),
		config:            planning.GetConfig(),
		logger:            planning.Logger,
	}
}

func AssignmentHandler(router *graceful.Graceful, pub *events.Publisher) {
	h := newAssignmentHandler(pub)

	routes := router.Group("/api/v1/steps/:stepId/machines")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.GET("", h.list)
		routes.POST("", h.assign)
		routes.PUT("/:machineId", h.updateStatus)
	}
}

func (slf *assignmentHandler) list(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}

	rows, err := slf.assignmentService.List(stepID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToAssignments(rows))
}

func (slf *assignmentHandler) assign(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}

	var req request.AssignMachine
	if err := pkg.ParseAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	row, err := slf.assignmentService.Assign(stepID, req.MachineID, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, mapper.ToAssignment(*row))
}

func (slf *assignmentHandler) updateStatus(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	stepID, ok := pathID(c, "stepId")
	if !ok {
		return
	}
	machineID, ok := pathID(c, "machineId")
	if !ok {
		return
	}

	var req request.UpdateAssignment
	if err := pkg.ParseAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	status, valid := models.ParseAssignmentStatus(req.Status)
	if !valid {
		writeError(c, &apperr.ValidationError{Field: "status", Reason: "must be ASSIGNED, IN_PROGRESS or COMPLETED"})
		return
	}

	row, err := slf.assignmentService.UpdateStatus(stepID, machineID, status, *req.ExpectedVersion, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToAssignment(*row))
}

func pathID(c *gin.Context, name string) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || raw == 0 {
		c.JSON(http.StatusBadRequest, response.APIError{Message: name + " must be a positive integer"})
		return 0, false
	}
	return uint(raw), true
}
