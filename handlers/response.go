package handlers

import (
	"errors"
	"net/http"

	apperror "github.com/Yulian302/lfusys-services-media/commons/errors"
	"github.com/Yulian302/lfusys-services-media/validation"
	"github.com/gin-gonic/gin"
)

type successEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondOK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, successEnvelope{Success: true, Data: data, Message: message})
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: msg})
}

// respondServiceError maps validation failures to 400, unknown multipart
// sessions to 404 and everything else to 500 with the storage message as-is.
func respondServiceError(c *gin.Context, err error) {
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorEnvelope{
			Error:   vErr.Message,
			Code:    string(vErr.Code),
			Details: vErr.Details,
		})
	case errors.Is(err, apperror.ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorEnvelope{
			Error: "Upload session not found",
			Code:  "SessionNotFound",
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorEnvelope{Error: err.Error()})
	}
}
