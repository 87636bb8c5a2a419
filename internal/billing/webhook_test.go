package billing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/pkg/response"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"type":"subscription.activated"}`)

	if !VerifySignature(secret, body, sign(secret, body)) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(secret, body, sign([]byte("other"), body)) {
		t.Fatal("signature from wrong secret accepted")
	}
	if VerifySignature(secret, append(body, ' '), sign(secret, body)) {
		t.Fatal("signature accepted for altered body")
	}
	if VerifySignature(secret, body, "") {
		t.Fatal("empty signature accepted")
	}
	if VerifySignature(secret, body, "not-hex") {
		t.Fatal("garbage signature accepted")
	}
}

func postWebhook(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/billing", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsUnsignedPayload(t *testing.T) {
	h := NewWebhookHandler("whsec_test", nil, nil, zap.NewNop())
	body, _ := json.Marshal(WebhookEvent{Type: EventSubscriptionActivated, OrganizationID: uuid.New()})

	w := postWebhook(t, h, body, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var resp response.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != response.CodeUnauthenticated {
		t.Fatalf("code = %s, want UNAUTHENTICATED", resp.Error)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler("whsec_test", nil, nil, zap.NewNop())
	body, _ := json.Marshal(WebhookEvent{Type: EventSubscriptionActivated, OrganizationID: uuid.New()})

	w := postWebhook(t, h, body, sign([]byte("attacker-secret"), body))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	secret := "whsec_test"
	h := NewWebhookHandler(secret, nil, nil, zap.NewNop())
	body, _ := json.Marshal(WebhookEvent{Type: "invoice.finalized", OrganizationID: uuid.New()})

	w := postWebhook(t, h, body, sign([]byte(secret), body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
