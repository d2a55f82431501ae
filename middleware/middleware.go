package middleware

import (
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/finledger/qbo-connector/pkg/logger"
)

// InitializeAllMiddleware sets up the middleware stack for the Echo
// server.
func InitializeAllMiddleware(e *echo.Echo) {
	if os.Getenv("HTTP_LOGGING") == "true" {
		e.Use(echomiddleware.Logger())
	}
	e.Use(echomiddleware.Recover())
	e.Use(TraceIDMiddleware())
	e.Use(MonkitMiddleware())
	e.Use(echomiddleware.CORS())
}

// JWTMiddleware guards the resource endpoints. The signing secret
// comes from JWT_SECRET; with no secret configured the guard is
// disabled (local development).
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return next(c)
		}

		token := c.Request().Header.Get("Authorization")
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing JWT token")
		}

		jwtToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return []byte(secret), nil
		})

		if err != nil || !jwtToken.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		return next(c)
	}
}

// TraceIDMiddleware tags every request with a trace id and logs start
// and completion with timing.
func TraceIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			traceID := uuid.New().String()
			c.Set("trace_id", traceID)

			ctx := logger.WithTraceID(c.Request().Context(), traceID)
			c.SetRequest(c.Request().WithContext(ctx))

			logger.Info(ctx, "Request started",
				logger.String("method", c.Request().Method),
				logger.String("path", c.Request().URL.Path),
				logger.String("remote_addr", c.Request().RemoteAddr),
			)

			start := time.Now()
			defer func() {
				duration := time.Since(start)
				status := c.Response().Status
				fields := []logger.Field{
					logger.String("method", c.Request().Method),
					logger.String("path", c.Request().URL.Path),
					logger.Int("status", status),
					logger.String("duration", duration.String()),
				}
				if err != nil {
					logger.Error(ctx, "Request failed", append(fields, logger.ErrorField(err))...)
				} else {
					logger.Info(ctx, "Request completed", fields...)
				}
			}()

			return next(c)
		}
	}
}
