package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookBody = `{
	"eventNotifications": [{
		"realmId": "realm-1",
		"dataChangeEvent": {
			"entities": [
				{"name": "Invoice", "id": "145", "operation": "Update", "lastUpdated": "2026-08-01T10:00:00Z"},
				{"name": "Vendor", "id": "56", "operation": "Create", "lastUpdated": "2026-08-01T10:00:01Z"}
			]
		}
	}]
}`

func signBody(token, body string) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandleWebhookPersistsEvents(t *testing.T) {
	h, store := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/quickbooks/webhook", strings.NewReader(webhookBody))
	req.Header.Set("intuit-signature", signBody(testWebhookToken, webhookBody))

	rec := doRequest(h.HandleWebhook, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	events, err := store.WebhookEvents.GetWebhookEvents(10, 0, "", "")
	require.NoError(t, err)
	require.Len(t, events, 2)

	byEntity := map[string]string{}
	for _, event := range events {
		byEntity[event.EntityName] = event.Operation
		assert.Equal(t, "realm-1", event.RealmID)
		assert.Equal(t, "received", event.Status)
	}
	assert.Equal(t, "Update", byEntity["Invoice"])
	assert.Equal(t, "Create", byEntity["Vendor"])
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	h, store := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/quickbooks/webhook", strings.NewReader(webhookBody))
	req.Header.Set("intuit-signature", signBody("wrong-token", webhookBody))

	rec := doRequest(h.HandleWebhook, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	events, err := store.WebhookEvents.GetWebhookEvents(10, 0, "", "")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHandleWebhookRejectsMissingSignature(t *testing.T) {
	h, _ := newTestHandler(t, "")

	req := httptest.NewRequest(http.MethodPost, "/quickbooks/webhook", strings.NewReader(webhookBody))
	rec := doRequest(h.HandleWebhook, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleWebhookRejectsTamperedBody(t *testing.T) {
	h, _ := newTestHandler(t, "")

	tampered := strings.Replace(webhookBody, `"145"`, `"999"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/quickbooks/webhook", strings.NewReader(tampered))
	req.Header.Set("intuit-signature", signBody(testWebhookToken, webhookBody))

	rec := doRequest(h.HandleWebhook, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"ok":true}`)
	good := signBody("token", string(body))

	assert.True(t, verifyWebhookSignature("token", body, good))
	assert.False(t, verifyWebhookSignature("other", body, good))
	assert.False(t, verifyWebhookSignature("token", body, "not-base64!!"))
	assert.False(t, verifyWebhookSignature("", body, good))
	assert.False(t, verifyWebhookSignature("token", body, ""))
}
