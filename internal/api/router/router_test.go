package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/whatsapp-concierge/internal/channels/whatsapp"
	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/internal/http/handlers"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

const testAdminSecret = "router-test-secret"

type noopEvents struct {
	calls int
}

func (n *noopEvents) HandleEvent(context.Context, conversation.InboundEvent) ([]conversation.Action, error) {
	n.calls++
	return nil, nil
}

type staticSessions struct{}

func (staticSessions) Session(_ context.Context, userID string) (conversation.UserSession, error) {
	return conversation.NewSession(userID), nil
}

func (staticSessions) Reset(_ context.Context, userID string) (conversation.UserSession, error) {
	return conversation.NewSession(userID), nil
}

func newTestRouter(t *testing.T, events *noopEvents) http.Handler {
	t.Helper()
	router, _ := newTestRouterWithWebhook(t, events)
	return router
}

func newTestRouterWithWebhook(t *testing.T, events *noopEvents) (http.Handler, *whatsapp.WebhookHandler) {
	t.Helper()

	logger := logging.NewWithWriter("error", io.Discard)
	webhook := whatsapp.NewWebhookHandler(whatsapp.WebhookConfig{
		VerifyToken: "verify-me",
		Events:      events,
		Logger:      logger,
	})
	cfg := &Config{
		Logger:        logger,
		Webhook:       webhook,
		AdminSessions: handlers.NewAdminSessionsHandler(staticSessions{}, logger),
		AdminSecret:   testAdminSecret,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}
	return New(cfg), webhook
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &noopEvents{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestRouterWebhookVerification(t *testing.T) {
	router := newTestRouter(t, &noopEvents{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "42" {
		t.Fatalf("expected challenge echo, got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRouterWebhookAcknowledgesDelivery(t *testing.T) {
	events := &noopEvents{}
	router, webhook := newTestRouterWithWebhook(t, events)

	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"5215512345678","id":"wamid.1","type":"text","text":{"body":"hola"}}]}}]}]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	if rr.Code != http.StatusOK || rr.Body.String() != "EVENT_RECEIVED" {
		t.Fatalf("expected ack, got %d %q", rr.Code, rr.Body.String())
	}
	webhook.Drain()
	if events.calls != 1 {
		t.Fatalf("expected one handled event, got %d", events.calls)
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, &noopEvents{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/sessions/525512345678", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/sessions/525512345678", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"state":"INIT"`) {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &noopEvents{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
