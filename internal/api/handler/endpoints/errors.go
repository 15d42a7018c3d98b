package endpoints

import (
	"net/http"

	"planning/internal/api/apperr"
	"planning/internal/api/handler/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a core failure to its HTTP shape. Every structured failure
// keeps its detail in the response body so probes and operators can act on
// specifics instead of guessing.
func writeError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *apperr.NotFoundError:
		c.JSON(http.StatusNotFound, response.APIError{Message: e.Error()})
	case *apperr.AlreadyExistsError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error()})
	case *apperr.InvalidTransitionError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error(), Data: gin.H{
			"from": e.From, "to": e.To,
		}})
	case *apperr.InvalidMachineTransitionError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error(), Data: gin.H{
			"from": e.From, "to": e.To,
		}})
	case *apperr.DuplicateStepNoError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error(), Data: gin.H{
			"stepNo": e.StepNo,
		}})
	case *apperr.InvalidStepSequenceError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error()})
	case *apperr.DuplicateAssignmentError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error(), Data: gin.H{
			"status": e.Status,
		}})
	case *apperr.IncompleteMachineWorkError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error(), Data: gin.H{
			"outstandingMachines": e.Outstanding,
		}})
	case *apperr.VersionConflictError:
		c.JSON(http.StatusConflict, response.APIError{Message: e.Error(), Data: gin.H{
			"expectedVersion": e.Expected, "currentVersion": e.Actual,
		}})
	case *apperr.TimeoutError:
		c.JSON(http.StatusGatewayTimeout, response.APIError{Message: e.Error()})
	case *apperr.ValidationError:
		c.JSON(http.StatusBadRequest, response.APIError{Message: e.Error()})
	default:
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Internal error"})
	}
}
