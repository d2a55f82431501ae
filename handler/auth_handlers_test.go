package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenEndpoint answers bearer token requests.
func fakeTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    3600,
			"token_type":    "bearer",
		})
	}))
}

func TestHandleConnectRedirects(t *testing.T) {
	h, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/quickbooks/connect", nil)
	rec := doRequest(h.HandleConnect, req, nil)

	assert.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "appcenter.intuit.com/connect/oauth2")
	assert.Contains(t, location, "state=")
}

func TestHandleCallbackExchangesAndPersists(t *testing.T) {
	endpoint := fakeTokenEndpoint(t)
	defer endpoint.Close()

	h, store := newTestHandler(t, "")
	h.tokens.TokenURL = endpoint.URL

	req := httptest.NewRequest(http.MethodGet, "/quickbooks/callback?code=good-code&realmId=realm-2", nil)
	rec := doRequest(h.HandleCallback, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	pair, err := store.Tokens.Get("realm-2")
	require.NoError(t, err)
	assert.Equal(t, "new-access", pair.AccessToken)
	assert.Equal(t, "new-refresh", pair.RefreshToken)
}

func TestHandleCallbackMissingParams(t *testing.T) {
	h, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/quickbooks/callback?code=only-code", nil)
	rec := doRequest(h.HandleCallback, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCallbackExchangeRejected(t *testing.T) {
	endpoint := fakeTokenEndpoint(t)
	defer endpoint.Close()

	h, _ := newTestHandler(t, "")
	h.tokens.TokenURL = endpoint.URL

	req := httptest.NewRequest(http.MethodGet, "/quickbooks/callback?code=bad-code&realmId=realm-2", nil)
	rec := doRequest(h.HandleCallback, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleRefreshPersistsRotatedPair(t *testing.T) {
	endpoint := fakeTokenEndpoint(t)
	defer endpoint.Close()

	h, store := newTestHandler(t, "")
	h.tokens.TokenURL = endpoint.URL

	req := httptest.NewRequest(http.MethodPost, "/quickbooks/refresh", nil)
	rec := doRequest(h.HandleRefresh, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	pair, err := store.Tokens.Get("realm-1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", pair.AccessToken)
	assert.Equal(t, "new-refresh", pair.RefreshToken)
}

func TestHandleStatusConnected(t *testing.T) {
	h, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/quickbooks/status", nil)
	rec := doRequest(h.HandleStatus, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeResponse(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["connected"])
	assert.Equal(t, "realm-1", data["realm_id"])
	assert.Equal(t, false, data["access_expired"])
}
