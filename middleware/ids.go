package middleware

import (
	"net/http"

	"quicklearner/models"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

// ObjectIDParams rejects the request with 422 unless every named path
// parameter is a 24-character hex id.
func ObjectIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields []services.FieldError
		for _, name := range names {
			if !models.IsValidID(c.Param(name)) {
				fields = append(fields, services.FieldError{Field: name, Message: "Id not valid"})
			}
		}
		if len(fields) > 0 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"errors": fields})
			return
		}
		c.Next()
	}
}
