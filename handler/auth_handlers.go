package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finledger/qbo-connector/pkg/logger"
	"github.com/finledger/qbo-connector/pkg/monitor"
	"github.com/finledger/qbo-connector/pkg/utils"

	response "github.com/finledger/qbo-connector/pkg/echo"
)

// HandleConnect redirects the browser to the Intuit consent page.
func (h *QuickbooksHandler) HandleConnect(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	state := utils.RandString(24)
	authURL := h.tokens.AuthCodeURL(state)

	logger.Info(ctx, "redirecting to quickbooks consent page")
	return c.Redirect(http.StatusFound, authURL)
}

// HandleCallback receives the OAuth redirect, exchanges the code for a
// token pair and persists it.
func (h *QuickbooksHandler) HandleCallback(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	code := c.QueryParam("code")
	realmID := c.QueryParam("realmId")

	if code == "" || realmID == "" {
		return response.BadRequest(c, "callback requires code and realmId query params", nil)
	}

	pair, err := h.tokens.Exchange(ctx, code, realmID)
	if err != nil {
		logger.Error(ctx, "token exchange failed", logger.ErrorField(err))
		return respondError(c, err)
	}

	if err := h.store.Tokens.Save(pair); err != nil {
		logger.Error(ctx, "failed to persist token pair", logger.ErrorField(err))
		return response.InternalError(c, "failed to persist tokens", err)
	}

	logger.Info(ctx, "quickbooks company connected", logger.String("realm_id", realmID))
	return response.OK(c, "quickbooks connected", map[string]interface{}{
		"realm_id": realmID,
	})
}

// HandleRefresh forces a refresh exchange and persists the rotated
// pair.
func (h *QuickbooksHandler) HandleRefresh(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	pair, err := h.tokens.Refresh(ctx)
	if err != nil {
		logger.Error(ctx, "token refresh failed", logger.ErrorField(err))
		return respondError(c, err)
	}

	if err := h.store.Tokens.Save(pair); err != nil {
		logger.Error(ctx, "failed to persist refreshed pair", logger.ErrorField(err))
		return response.InternalError(c, "failed to persist tokens", err)
	}

	return response.OK(c, "tokens refreshed", map[string]interface{}{
		"realm_id":    pair.RealmID,
		"obtained_at": pair.ObtainedAt,
	})
}

// HandleDisconnect revokes the refresh token upstream and deletes the
// stored record.
func (h *QuickbooksHandler) HandleDisconnect(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	pair, ok := h.tokens.Current()
	if !ok {
		return response.BadRequest(c, "no quickbooks company connected", nil)
	}

	if err := h.tokens.Revoke(ctx); err != nil {
		logger.Error(ctx, "token revocation failed", logger.ErrorField(err))
		return respondError(c, err)
	}

	if err := h.store.Tokens.Delete(pair.RealmID); err != nil {
		logger.Error(ctx, "failed to delete token record", logger.ErrorField(err))
		return response.InternalError(c, "failed to delete tokens", err)
	}

	logger.Info(ctx, "quickbooks company disconnected", logger.String("realm_id", pair.RealmID))
	return response.OK(c, "quickbooks disconnected", nil)
}

// HandleStatus reports the connection state without touching upstream.
func (h *QuickbooksHandler) HandleStatus(c echo.Context) error {
	pair, ok := h.tokens.Current()
	if !ok {
		return response.OK(c, "not connected", map[string]interface{}{
			"connected": false,
		})
	}

	now := time.Now()
	return response.OK(c, "connected", map[string]interface{}{
		"connected":       true,
		"realm_id":        pair.RealmID,
		"obtained_at":     pair.ObtainedAt,
		"access_expired":  pair.AccessExpired(now),
		"refresh_expired": pair.RefreshExpired(now),
	})
}
