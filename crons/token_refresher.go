package crons

import (
	"context"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/finledger/qbo-connector/apps/quickbooks"
	"github.com/finledger/qbo-connector/db"
	"github.com/finledger/qbo-connector/pkg/logger"
)

// refreshSchedule keeps the access token fresh: the token lives 3600
// seconds, so refreshing every 50 minutes stays safely inside the
// window.
const refreshSchedule = "@every 50m"

// RefreshManager runs the periodic token refresh. A run is idempotent
// and safe alongside in-flight resource calls: the token manager
// serializes rotation and collapses concurrent refreshes.
type RefreshManager struct {
	tokens *quickbooks.TokenManager
	store  *db.Store
	cron   *cron.Cron
}

// NewRefreshManager creates the refresh scheduler.
func NewRefreshManager(tokens *quickbooks.TokenManager, store *db.Store) *RefreshManager {
	return &RefreshManager{
		tokens: tokens,
		store:  store,
		cron:   cron.New(),
	}
}

// createCronContext creates a context with trace ID for cron runs
func createCronContext(operation string) context.Context {
	traceID := uuid.New().String()
	ctx := logger.WithTraceID(context.Background(), traceID)
	logger.Info(ctx, "Cron job started", logger.String("operation", operation))
	return ctx
}

// Start registers the refresh schedule and starts the cron loop.
func (m *RefreshManager) Start() {
	m.cron.AddFunc(refreshSchedule, func() {
		ctx := createCronContext("token_refresh")
		if err := m.RefreshOnce(ctx); err != nil {
			logger.Error(ctx, "Scheduled token refresh failed", logger.ErrorField(err))
		} else {
			logger.Info(ctx, "Scheduled token refresh completed")
		}
	})

	m.cron.Start()
}

// Stop cancels the schedule; tied to process shutdown.
func (m *RefreshManager) Stop() {
	<-m.cron.Stop().Done()
}

// RefreshOnce performs one refresh pass and persists the rotated pair.
// With no connected company it is a no-op.
func (m *RefreshManager) RefreshOnce(ctx context.Context) error {
	pair, ok := m.tokens.Current()
	if !ok {
		logger.Debug(ctx, "no connected company, skipping refresh")
		return nil
	}

	refreshed, err := m.tokens.Refresh(ctx)
	if err != nil {
		// An AuthError here means the refresh token is expired or
		// revoked; a human has to repeat the consent flow.
		logger.Error(ctx, "token refresh failed",
			logger.String("realm_id", pair.RealmID),
			logger.ErrorField(err))
		return err
	}

	if err := m.store.Tokens.Save(refreshed); err != nil {
		logger.Error(ctx, "failed to persist refreshed tokens",
			logger.String("realm_id", refreshed.RealmID),
			logger.ErrorField(err))
		return err
	}

	logger.Info(ctx, "tokens refreshed",
		logger.String("realm_id", refreshed.RealmID))
	return nil
}
