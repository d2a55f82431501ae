package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/finledger/qbo-connector/apps/quickbooks"
	"github.com/finledger/qbo-connector/db"
	response "github.com/finledger/qbo-connector/pkg/echo"
)

// QuickbooksHandler wires the token manager, resource client and store
// into the HTTP surface.
type QuickbooksHandler struct {
	cfg    quickbooks.Config
	tokens *quickbooks.TokenManager
	client *quickbooks.Client
	store  *db.Store
}

// NewQuickbooksHandler creates the handler set.
func NewQuickbooksHandler(cfg quickbooks.Config, tokens *quickbooks.TokenManager, client *quickbooks.Client, store *db.Store) *QuickbooksHandler {
	return &QuickbooksHandler{
		cfg:    cfg,
		tokens: tokens,
		client: client,
		store:  store,
	}
}

// respondError maps the typed quickbooks errors onto HTTP statuses.
// RemoteError keeps its upstream status so callers see the remote
// diagnostics verbatim.
func respondError(c echo.Context, err error) error {
	var (
		authErr     *quickbooks.AuthError
		stateErr    *quickbooks.StateError
		notFound    *quickbooks.NotFoundError
		conflict    *quickbooks.ConflictError
		rateLimited *quickbooks.RateLimitError
		remote      *quickbooks.RemoteError
	)

	switch {
	case errors.As(err, &authErr):
		return response.Unauthorized(c, "quickbooks authorization required", err)
	case errors.As(err, &stateErr):
		return response.BadRequest(c, "invalid request state", err)
	case errors.As(err, &notFound):
		return response.NotFound(c, "entity not found", err)
	case errors.As(err, &conflict):
		return response.Conflict(c, "update conflict", err)
	case errors.As(err, &rateLimited):
		return response.TooManyRequests(c, "quickbooks rate limit reached", err)
	case errors.As(err, &remote):
		return response.Fail(c, remote.Status, "quickbooks request failed", err)
	default:
		return response.InternalError(c, "request failed", err)
	}
}
