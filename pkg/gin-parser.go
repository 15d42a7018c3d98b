package pkg

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ParseAndValidate(c *gin.Context, dto interface{}) error {
	if err := c.ShouldBindJSON(dto); err != nil {
		return err
	}
	return validate.Struct(dto)
}

// GetUserID extracts the authenticated user id set by the auth middleware.
// Writes the 401 response itself when the id is missing.
func GetUserID(c *gin.Context) (uint, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, false
	}
	id, ok := raw.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return 0, false
	}
	return id, true
}
