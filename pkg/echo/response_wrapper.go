package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ==================== SUCCESS RESPONSES ====================

// OK - 200
func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created - 201
func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ==================== ERROR RESPONSES ====================

// Fail writes an error response with the given status.
func Fail(c echo.Context, status int, message string, err error) error {
	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(status, resp)
}

// BadRequest - 400
func BadRequest(c echo.Context, message string, err error) error {
	return Fail(c, http.StatusBadRequest, message, err)
}

// Unauthorized - 401
func Unauthorized(c echo.Context, message string, err error) error {
	return Fail(c, http.StatusUnauthorized, message, err)
}

// NotFound - 404
func NotFound(c echo.Context, message string, err error) error {
	return Fail(c, http.StatusNotFound, message, err)
}

// Conflict - 409
func Conflict(c echo.Context, message string, err error) error {
	return Fail(c, http.StatusConflict, message, err)
}

// TooManyRequests - 429
func TooManyRequests(c echo.Context, message string, err error) error {
	return Fail(c, http.StatusTooManyRequests, message, err)
}

// InternalError - 500
func InternalError(c echo.Context, message string, err error) error {
	return Fail(c, http.StatusInternalServerError, message, err)
}
