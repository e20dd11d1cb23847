// Package main drives a running relay through the booking flow over its
// public webhook and checks the result through the admin API.
//
// Usage:
//
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run ./scripts/e2e [scenario-name]
//
// WHATSAPP_APP_SECRET signs the deliveries when the relay verifies them.
// Outbound sends go to the configured Graph API base, so point
// WHATSAPP_GRAPH_API_BASE at a sink when running against a test number.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSender = "5215500001111"

const (
	settleTimeout = 10 * time.Second
	pollInterval  = 200 * time.Millisecond
)

// canonical form of testSender after the 521 -> 52 rewrite
const testUser = "525500001111"

var (
	apiBase   string
	appSecret string
	token     string
	client    = &http.Client{Timeout: 30 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T collects the checks of one scenario.
type T struct {
	passed int
	failed int
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...any) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

func adminToken(secret string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "e2e",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func deliver(message map[string]any) (string, error) {
	id, _ := message["id"].(string)
	if id == "" {
		id = "wamid.e2e." + uuid.NewString()
		message["id"] = id
	}
	message["from"] = testSender
	message["timestamp"] = fmt.Sprint(time.Now().Unix())
	payload := map[string]any{
		"object": "whatsapp_business_account",
		"entry": []any{map[string]any{
			"id": "e2e",
			"changes": []any{map[string]any{
				"field": "messages",
				"value": map[string]any{
					"messaging_product": "whatsapp",
					"contacts":          []any{map[string]any{"wa_id": testSender, "profile": map[string]string{"name": "E2E"}}},
					"messages":          []any{message},
				},
			}},
		}},
	}
	body, _ := json.Marshal(payload)
	return id, post("/webhook", body)
}

func post(path string, body []byte) error {
	req, _ := http.NewRequest(http.MethodPost, apiBase+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if appSecret != "" {
		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(body)
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func sendText(text string) error {
	_, err := deliver(map[string]any{"type": "text", "text": map[string]string{"body": text}})
	return err
}

func tapButton(title string) error {
	_, err := deliver(map[string]any{
		"type": "interactive",
		"interactive": map[string]any{
			"type":         "button_reply",
			"button_reply": map[string]string{"id": "btn_0", "title": title},
		},
	})
	return err
}

func admin(method, path string) (map[string]any, error) {
	req, _ := http.NewRequest(method, apiBase+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(b))
	}
	var out map[string]any
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

func sessionState(t *T) (string, string) {
	sess, err := admin(http.MethodGet, "/admin/sessions/"+testUser)
	if err != nil {
		t.fatalf("read session: %v", err)
		return "", ""
	}
	state, _ := sess["state"].(string)
	name, _ := sess["captured_name"].(string)
	return state, name
}

// awaitState polls the session until it reaches want, since deliveries are
// acknowledged before they are processed.
func awaitState(t *T, want string) (string, string) {
	deadline := time.Now().Add(settleTimeout)
	for {
		state, name := sessionState(t)
		if state == want || t.failed > 0 || time.Now().After(deadline) {
			return state, name
		}
		time.Sleep(pollInterval)
	}
}

func reset(t *T) bool {
	if _, err := admin(http.MethodPost, "/admin/sessions/"+testUser+"/reset"); err != nil {
		t.fatalf("reset session: %v", err)
		return false
	}
	return true
}

var scenarios = []scenario{
	{"booking-flow", func(t *T) {
		if !reset(t) {
			return
		}
		if err := sendText("Quiero agendar una cita"); err != nil {
			t.fatalf("send: %v", err)
			return
		}
		state, _ := awaitState(t, "AWAITING_NAME")
		t.check("schedule keyword asks for the name", state == "AWAITING_NAME")

		if err := sendText("Ana Pérez"); err != nil {
			t.fatalf("send: %v", err)
			return
		}
		state, name := awaitState(t, "AWAITING_SERVICE")
		t.check("name captured", state == "AWAITING_SERVICE" && name == "Ana Pérez")

		if err := tapButton("Consultoría"); err != nil {
			t.fatalf("tap: %v", err)
			return
		}
		state, name = awaitState(t, "INIT")
		t.check("service choice completes the booking", state == "INIT" && name == "")
	}},
	{"menu-keeps-state", func(t *T) {
		if !reset(t) {
			return
		}
		if err := sendText("hola"); err != nil {
			t.fatalf("send: %v", err)
			return
		}
		time.Sleep(settleTimeout / 4)
		state, _ := sessionState(t)
		t.check("greeting leaves the session idle", state == "INIT")
	}},
	{"redelivery-ignored", func(t *T) {
		if !reset(t) {
			return
		}
		msg := map[string]any{"type": "text", "text": map[string]string{"body": "agendar"}}
		id, err := deliver(msg)
		if err != nil {
			t.fatalf("send: %v", err)
			return
		}
		if state, _ := awaitState(t, "AWAITING_NAME"); state != "AWAITING_NAME" {
			t.fatalf("first delivery not applied, state %s", state)
			return
		}
		if !reset(t) {
			return
		}
		// Same wamid again: the relay must not act on it twice.
		if _, err := deliver(map[string]any{"id": id, "type": "text", "text": map[string]string{"body": "agendar"}}); err != nil {
			t.fatalf("resend: %v", err)
			return
		}
		time.Sleep(settleTimeout / 4)
		state, _ := sessionState(t)
		t.check("redelivered wamid leaves the reset session alone", state == "INIT")
	}},
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	secret := os.Getenv("ADMIN_JWT_SECRET")
	appSecret = os.Getenv("WHATSAPP_APP_SECRET")
	if apiBase == "" || secret == "" {
		fmt.Println("API_BASE_URL and ADMIN_JWT_SECRET are required")
		os.Exit(2)
	}
	var err error
	if token, err = adminToken(secret); err != nil {
		fmt.Printf("sign admin token: %v\n", err)
		os.Exit(2)
	}

	only := ""
	if len(os.Args) > 1 {
		only = os.Args[1]
	}

	var passed, failed int
	for _, sc := range scenarios {
		if only != "" && sc.Name != only {
			continue
		}
		fmt.Printf("=== %s\n", sc.Name)
		t := &T{}
		sc.Fn(t)
		passed += t.passed
		failed += t.failed
	}
	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
