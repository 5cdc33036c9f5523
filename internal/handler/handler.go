package handler

import (
	"net/http"

	"procurement/internal/apperror"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto the response envelope. Domain errors
// carry their machine-readable code; anything else is an opaque 500.
func writeError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if e, ok := apperror.FromError(err); ok {
		c.JSON(status, response.ErrorWithCode(status, e.Code, e.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}
