package handler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finledger/qbo-connector/apps/quickbooks"
	"github.com/finledger/qbo-connector/pkg/logger"
	"github.com/finledger/qbo-connector/pkg/monitor"

	response "github.com/finledger/qbo-connector/pkg/echo"
)

// resourceParam validates the :resource path segment before any
// upstream call is attempted.
func resourceParam(c echo.Context) (quickbooks.Resource, error) {
	name := c.Param("resource")
	r, ok := quickbooks.LookupResource(name)
	if !ok {
		return quickbooks.Resource{}, fmt.Errorf("unknown resource %q, supported: %s", name, strings.Join(quickbooks.ResourceNames(), ", "))
	}
	return r, nil
}

// bindBody decodes the request body into the generic envelope the
// resource client forwards upstream.
func bindBody(c echo.Context) (map[string]interface{}, error) {
	var body map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	return body, nil
}

// HandleCreate creates an entity from the caller-supplied JSON body.
func (h *QuickbooksHandler) HandleCreate(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	r, err := resourceParam(c)
	if err != nil {
		return response.BadRequest(c, "unsupported resource", err)
	}

	body, err := bindBody(c)
	if err != nil {
		return response.BadRequest(c, "invalid body", err)
	}

	raw, err := h.client.Create(ctx, r.Name, body)
	if err != nil {
		logger.Error(ctx, "create failed", logger.String("resource", r.Name), logger.ErrorField(err))
		return respondError(c, err)
	}

	return response.Created(c, r.Entity+" created", raw)
}

// HandleGet fetches an entity by id.
func (h *QuickbooksHandler) HandleGet(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	r, err := resourceParam(c)
	if err != nil {
		return response.BadRequest(c, "unsupported resource", err)
	}

	raw, err := h.client.Get(ctx, r.Name, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, r.Entity+" fetched", raw)
}

// HandleUpdate forwards an update envelope. The body must carry Id and
// SyncToken; the client validates those before dispatch.
func (h *QuickbooksHandler) HandleUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	r, err := resourceParam(c)
	if err != nil {
		return response.BadRequest(c, "unsupported resource", err)
	}

	body, err := bindBody(c)
	if err != nil {
		return response.BadRequest(c, "invalid body", err)
	}

	raw, err := h.client.Update(ctx, r.Name, body)
	if err != nil {
		logger.Error(ctx, "update failed", logger.String("resource", r.Name), logger.ErrorField(err))
		return respondError(c, err)
	}

	return response.OK(c, r.Entity+" updated", raw)
}

// HandleQuery runs a QBO select statement from the q query param.
func (h *QuickbooksHandler) HandleQuery(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	stmt := c.QueryParam("q")
	if stmt == "" {
		return response.BadRequest(c, "missing q query param", nil)
	}

	raw, err := h.client.Query(ctx, stmt)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, "query executed", raw)
}

// HandleCompanyInfo fetches the connected company record.
func (h *QuickbooksHandler) HandleCompanyInfo(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	raw, err := h.client.CompanyInfo(ctx)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, "company info fetched", raw)
}

// HandleReport runs a named report with optional start_date/end_date
// query params (YYYY-MM-DD).
func (h *QuickbooksHandler) HandleReport(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	name := c.Param("name")

	params := url.Values{}
	for _, key := range []string{"start_date", "end_date"} {
		value := c.QueryParam(key)
		if value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return response.BadRequest(c, key+" must be YYYY-MM-DD", err)
		}
		params.Set(key, value)
	}

	raw, err := h.client.Report(ctx, name, params)
	if err != nil {
		return respondError(c, err)
	}

	return response.OK(c, "report executed", raw)
}
