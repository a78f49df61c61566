package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrust/pharmacy-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// WriteError maps a service error to the appropriate HTTP status and
// writes the standard error envelope.
func WriteError(c *gin.Context, err error) {
	c.JSON(statusFor(err), NewErrorResponse(err.Error()))
}

func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrValidation, errors.ErrInvalidOperation:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusForbidden
	case errors.ErrInvalidTransition, errors.ErrInsufficientStock,
		errors.ErrExpiredDrug, errors.ErrCannotExpireDispensed:
		return http.StatusConflict
	case errors.ErrIntegrityViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
