package endpoints

import (
	"net/http"

	"planning"
	"planning/internal/api/handler/mapper"
	"planning/internal/api/handler/middleware"
	"planning/internal/api/handler/response"
	"planning/internal/api/service"
	"planning/pkg"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
)

type machineHandler struct {
	machineService *service.MachineService
	config         planning.AppConfig
}

func newMachineHandler() *machineHandler {
	cache := pkg.NewCache(planning.Redis, service.MachineCacheTTL)
	return &machineHandler{
		machineService: service.NewMachineService(planning.DB, cache, planning.Logger),
		config:         planning.GetConfig(),
	}
}

func MachineHandler(router *graceful.Graceful) {
	h := newMachineHandler()

	routes := router.Group("/api/v1/machines")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.GET("", h.list)
		routes.GET("/:machineId", h.getByID)
	}
}

func (slf *machineHandler) list(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}

	machines, err := slf.machineService.List()
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]response.Machine, len(machines))
	for i, m := range machines {
		out[i] = mapper.ToMachine(m)
	}
	c.JSON(http.StatusOK, out)
}

func (slf *machineHandler) getByID(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}
	machineID, ok := pathID(c, "machineId")
	if !ok {
		return
	}

	m, err := slf.machineService.Lookup(machineID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToMachine(m))
}
