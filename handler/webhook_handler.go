package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finledger/qbo-connector/pkg/logger"
	"github.com/finledger/qbo-connector/pkg/monitor"
	"github.com/finledger/qbo-connector/pkg/prometheus"
)

const maxWebhookBodySize = 5 << 20 // 5 MB

// intuitSignatureHeader carries the base64 HMAC-SHA256 of the raw body,
// keyed with the app's webhook verifier token.
const intuitSignatureHeader = "intuit-signature"

// webhookPayload is the QBO event notification envelope.
type webhookPayload struct {
	EventNotifications []struct {
		RealmID         string `json:"realmId"`
		DataChangeEvent struct {
			Entities []struct {
				Name        string    `json:"name"`
				ID          string    `json:"id"`
				Operation   string    `json:"operation"`
				LastUpdated time.Time `json:"lastUpdated"`
			} `json:"entities"`
		} `json:"dataChangeEvent"`
	} `json:"eventNotifications"`
}

// webhookResponse is the acknowledgment sent back to Intuit.
type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// verifyWebhookSignature checks the intuit-signature header against the
// raw body using constant-time comparison.
func verifyWebhookSignature(verifierToken string, body []byte, signature string) bool {
	if verifierToken == "" || signature == "" {
		return false
	}

	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(verifierToken))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// HandleWebhook receives QuickBooks event notifications, verifies the
// signature and persists each entity event. Processing beyond
// persistence is out of scope.
func (h *QuickbooksHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	var err error
	defer monitor.Mon.Task()(&ctx)(&err)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodySize))
	if err != nil {
		return c.JSON(http.StatusBadRequest, webhookResponse{Status: "error", Message: "failed to read body"})
	}

	signature := c.Request().Header.Get(intuitSignatureHeader)
	if !verifyWebhookSignature(h.cfg.WebhookToken, body, signature) {
		logger.Warn(ctx, "webhook signature verification failed")
		return c.JSON(http.StatusUnauthorized, webhookResponse{Status: "error", Message: "invalid signature"})
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, webhookResponse{Status: "error", Message: "invalid payload"})
	}

	stored := 0
	for _, notification := range payload.EventNotifications {
		for _, entity := range notification.DataChangeEvent.Entities {
			_, err := h.store.WebhookEvents.CreateWebhookEvent(
				notification.RealmID, entity.Name, entity.ID, entity.Operation, entity.LastUpdated)
			if err != nil {
				logger.Error(ctx, "failed to persist webhook event",
					logger.String("entity", entity.Name),
					logger.String("entity_id", entity.ID),
					logger.ErrorField(err))
				prometheus.RecordWebhookEvent(entity.Name, "failed")
				continue
			}
			prometheus.RecordWebhookEvent(entity.Name, "received")
			stored++
		}
	}

	logger.Info(ctx, "webhook processed", logger.Int("events", stored))
	return c.JSON(http.StatusOK, webhookResponse{Status: "ok"})
}

// HandleWebhookEvents lists stored webhook events with optional entity
// and status filters.
func (h *QuickbooksHandler) HandleWebhookEvents(c echo.Context) error {
	limit := 50
	offset := 0
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).Int("offset", &offset).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, webhookResponse{Status: "error", Message: "invalid pagination params"})
	}

	events, err := h.store.WebhookEvents.GetWebhookEvents(limit, offset, c.QueryParam("entity"), c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, webhookResponse{Status: "error", Message: err.Error()})
	}

	return c.JSON(http.StatusOK, events)
}
