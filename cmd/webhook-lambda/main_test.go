package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

func newProxy(baseURL string) *proxy {
	return &proxy{
		cfg:    config{upstreamBaseURL: baseURL, upstreamTimeout: time.Second},
		client: &http.Client{Timeout: time.Second},
		logger: logging.NewWithWriter("error", io.Discard),
	}
}

func request(method, path, rawQuery string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath:        path,
		RawQueryString: rawQuery,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   path,
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	resp, err := newProxy("http://example.com").handle(context.Background(), request(http.MethodGet, "/health", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "ok" {
		t.Fatalf("expected ok health, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleRejectsUnsupportedMethod(t *testing.T) {
	resp, err := newProxy("http://example.com").handle(context.Background(), request(http.MethodDelete, "/webhook", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}

func TestHandleRejectsUnknownPath(t *testing.T) {
	resp, err := newProxy("http://example.com").handle(context.Background(), request(http.MethodPost, "/webhooks/unknown", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHandleForwardsVerification(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/webhook" {
			t.Errorf("unexpected upstream request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, r.URL.Query().Get("hub.challenge"))
	}))
	defer upstream.Close()

	resp, err := newProxy(upstream.URL).handle(context.Background(),
		request(http.MethodGet, "/webhook", "hub.mode=subscribe&hub.verify_token=t&hub.challenge=777"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "777" {
		t.Fatalf("expected challenge passthrough, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleForwardsSignedDelivery(t *testing.T) {
	var gotBody, gotSig, gotCT string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotSig = r.Header.Get("X-Hub-Signature-256")
		gotCT = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "EVENT_RECEIVED")
	}))
	defer upstream.Close()

	evt := request(http.MethodPost, "/webhook/", "")
	evt.Body = base64.StdEncoding.EncodeToString([]byte(`{"object":"whatsapp_business_account"}`))
	evt.IsBase64Encoded = true
	evt.Headers = map[string]string{
		"Content-Type":        "application/json",
		"X-Hub-Signature-256": "sha256=abc",
	}

	resp, err := newProxy(upstream.URL).handle(context.Background(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "EVENT_RECEIVED" {
		t.Fatalf("expected ack passthrough, got %d %q", resp.StatusCode, resp.Body)
	}
	if gotBody != `{"object":"whatsapp_business_account"}` {
		t.Fatalf("unexpected forwarded body %q", gotBody)
	}
	if gotSig != "sha256=abc" || gotCT != "application/json" {
		t.Fatalf("expected headers forwarded, got sig=%q ct=%q", gotSig, gotCT)
	}
	if resp.Headers["content-type"] != "text/plain; charset=utf-8" {
		t.Fatalf("expected content type passthrough, got %q", resp.Headers["content-type"])
	}
}

func TestHandleUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	upstream.Close()

	evt := request(http.MethodPost, "/webhook", "")
	evt.Body = "{}"
	resp, err := newProxy(upstream.URL).handle(context.Background(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
}

func TestHandleInvalidBase64(t *testing.T) {
	evt := request(http.MethodPost, "/webhook", "")
	evt.Body = "%%%"
	evt.IsBase64Encoded = true
	resp, err := newProxy("http://example.com").handle(context.Background(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error without upstream")
	}

	t.Setenv("UPSTREAM_BASE_URL", "https://relay.example.com/")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.upstreamBaseURL != "https://relay.example.com" || cfg.upstreamTimeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}

	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}
