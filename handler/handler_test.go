package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/finledger/qbo-connector/apps/quickbooks"
	"github.com/finledger/qbo-connector/db"
)

const testWebhookToken = "verifier-token"

// newTestHandler builds a handler backed by an in-memory store, a
// connected token manager and a client pointed at upstream.
func newTestHandler(t *testing.T, upstream string) (*QuickbooksHandler, *db.Store) {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store := db.NewStore(gormDB)
	require.NoError(t, store.Migrate())

	cfg := quickbooks.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURI:  "http://localhost:8005/quickbooks/callback",
		WebhookToken: testWebhookToken,
	}

	tokens := quickbooks.NewTokenManager(cfg)
	tokens.Set(quickbooks.TokenPair{
		AccessToken:  "test-access",
		RefreshToken: "test-refresh",
		RealmID:      "realm-1",
		ObtainedAt:   time.Now(),
	})

	client := quickbooks.NewClient(cfg, tokens)
	if upstream != "" {
		client.BaseURL = upstream
	}

	return NewQuickbooksHandler(cfg, tokens, client, store), store
}

// doRequest runs one request through a bare echo instance.
func doRequest(h echo.HandlerFunc, req *http.Request, pathParams map[string]string) *httptest.ResponseRecorder {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(pathParams))
	values := make([]string, 0, len(pathParams))
	for name, value := range pathParams {
		names = append(names, name)
		values = append(values, value)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	_ = h(c)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
