package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	monkit "github.com/spacemonkeygo/monkit/v3"
)

var monkitRegistry = monkit.Default

// MonkitMiddleware records HTTP request metrics using Monkit: request
// duration, counts and error counts, tagged with method, path and
// status class.
func MonkitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			method := c.Request().Method
			path := sanitizePath(c.Request().URL.Path)

			err := next(c)

			duration := time.Since(start)
			statusCode := c.Response().Status

			pkg := monkitRegistry.Package()

			baseTags := []monkit.SeriesTag{
				monkit.NewSeriesTag("method", method),
				monkit.NewSeriesTag("path", path),
				monkit.NewSeriesTag("status_code", strconv.Itoa(statusCode)),
				monkit.NewSeriesTag("status_class", getStatusClass(statusCode)),
			}

			pkg.FloatVal("http_request_duration_seconds", baseTags...).Observe(duration.Seconds())
			pkg.Counter("http_requests_total", baseTags...).Inc(1)
			pkg.FloatVal("http_response_size_bytes", baseTags...).Observe(float64(c.Response().Size))

			if err != nil {
				errorTags := append(baseTags, monkit.NewSeriesTag("error_type", getErrorType(err)))
				pkg.Counter("http_request_errors_total", errorTags...).Inc(1)
			}

			return err
		}
	}
}

// getStatusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func getStatusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// getErrorType categorizes the error type
func getErrorType(err error) string {
	if err == nil {
		return "none"
	}

	if httpErr, ok := err.(*echo.HTTPError); ok {
		switch httpErr.Code {
		case 400:
			return "bad_request"
		case 401:
			return "unauthorized"
		case 403:
			return "forbidden"
		case 404:
			return "not_found"
		case 409:
			return "conflict"
		case 429:
			return "rate_limited"
		case 500:
			return "internal_server_error"
		default:
			return "http_error"
		}
	}

	return "unknown_error"
}

// sanitizePath normalizes the path so entity ids don't explode metric
// cardinality.
func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isEntityID(part) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// isEntityID matches numeric QBO entity ids and UUID state values.
func isEntityID(part string) bool {
	if len(part) == 36 && strings.Count(part, "-") == 4 {
		return true
	}
	if part == "" {
		return false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
