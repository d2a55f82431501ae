package crons

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/finledger/qbo-connector/apps/quickbooks"
	"github.com/finledger/qbo-connector/db"
)

func testStore(t *testing.T) *db.Store {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	store := db.NewStore(gormDB)
	require.NoError(t, store.Migrate())
	return store
}

func testTokenEndpoint(t *testing.T, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "rotated-access",
			"refresh_token": "rotated-refresh",
			"expires_in":    3600,
			"token_type":    "bearer",
		})
	}))
}

func TestRefreshOncePersistsRotatedPair(t *testing.T) {
	var calls int64
	endpoint := testTokenEndpoint(t, &calls)
	defer endpoint.Close()

	cfg := quickbooks.Config{ClientID: "test-client-id", ClientSecret: "test-client-secret"}
	tokens := quickbooks.NewTokenManager(cfg)
	tokens.TokenURL = endpoint.URL
	tokens.Set(quickbooks.TokenPair{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		RealmID:      "realm-1",
		ObtainedAt:   time.Now().Add(-55 * time.Minute),
	})

	store := testStore(t)
	manager := NewRefreshManager(tokens, store)

	require.NoError(t, manager.RefreshOnce(context.Background()))
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))

	pair, err := store.Tokens.Get("realm-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", pair.AccessToken)
	assert.Equal(t, "rotated-refresh", pair.RefreshToken)

	current, ok := tokens.Current()
	require.True(t, ok)
	assert.Equal(t, "rotated-access", current.AccessToken)
}

func TestRefreshOnceSkipsWhenNotConnected(t *testing.T) {
	var calls int64
	endpoint := testTokenEndpoint(t, &calls)
	defer endpoint.Close()

	cfg := quickbooks.Config{ClientID: "test-client-id", ClientSecret: "test-client-secret"}
	tokens := quickbooks.NewTokenManager(cfg)
	tokens.TokenURL = endpoint.URL

	manager := NewRefreshManager(tokens, testStore(t))

	require.NoError(t, manager.RefreshOnce(context.Background()))
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))
}

func TestRefreshOnceSurfacesRemoteRejection(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer endpoint.Close()

	cfg := quickbooks.Config{ClientID: "test-client-id", ClientSecret: "test-client-secret"}
	tokens := quickbooks.NewTokenManager(cfg)
	tokens.TokenURL = endpoint.URL
	tokens.Set(quickbooks.TokenPair{
		AccessToken:  "old-access",
		RefreshToken: "revoked-refresh",
		RealmID:      "realm-1",
		ObtainedAt:   time.Now(),
	})

	store := testStore(t)
	manager := NewRefreshManager(tokens, store)

	err := manager.RefreshOnce(context.Background())
	var authErr *quickbooks.AuthError
	require.ErrorAs(t, err, &authErr)

	_, getErr := store.Tokens.Get("realm-1")
	assert.ErrorIs(t, getErr, gorm.ErrRecordNotFound)
}
