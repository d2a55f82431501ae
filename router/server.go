package router

import (
	"github.com/labstack/echo/v4"

	"github.com/finledger/qbo-connector/handler"
	"github.com/finledger/qbo-connector/middleware"
	"github.com/finledger/qbo-connector/pkg/monitor"
)

// NewServer builds the Echo server with all routes wired.
func NewServer(h *handler.QuickbooksHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	middleware.InitializeAllMiddleware(e)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(monitor.CreateMetricsHandler()))

	qb := e.Group("/quickbooks")

	// OAuth lifecycle
	qb.GET("/connect", h.HandleConnect)
	qb.GET("/callback", h.HandleCallback)
	qb.POST("/refresh", h.HandleRefresh)
	qb.DELETE("/disconnect", h.HandleDisconnect)
	qb.GET("/status", h.HandleStatus)

	// Webhooks are authenticated by the intuit-signature header, not
	// by the JWT guard.
	qb.POST("/webhook", h.HandleWebhook)

	// Resource pass-through
	api := qb.Group("")
	api.Use(middleware.JWTMiddleware)

	api.GET("/company-info", h.HandleCompanyInfo)
	api.GET("/query", h.HandleQuery)
	api.GET("/reports/:name", h.HandleReport)
	api.GET("/webhook-events", h.HandleWebhookEvents)

	api.POST("/:resource", h.HandleCreate)
	api.GET("/:resource/:id", h.HandleGet)
	api.PUT("/:resource", h.HandleUpdate)

	return e
}

// StartServer builds the server and listens on address.
func StartServer(h *handler.QuickbooksHandler, address string) error {
	return NewServer(h).Start(address)
}
