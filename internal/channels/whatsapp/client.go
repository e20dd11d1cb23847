package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v21.0"
	defaultHTTPTimeout  = 10 * time.Second

	maxButtons          = 3
	maxButtonTitleRunes = 20
	maxTextRunes        = 4096
	maxInteractiveRunes = 1024
	maxCaptionRunes     = 1024
)

// SendError is a failed Graph API send.
type SendError struct {
	StatusCode int
	API        *APIError
	Body       string
}

func (e *SendError) Error() string {
	if e.API != nil {
		return fmt.Sprintf("whatsapp: API error %d (status %d): %s", e.API.Code, e.StatusCode, e.API.Message)
	}
	return fmt.Sprintf("whatsapp: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	graphAPIBase  string
	httpClient    *http.Client
}

// NewClient creates a Cloud API client for one business phone number.
func NewClient(accessToken, phoneNumberID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		graphAPIBase:  defaultGraphAPIBase,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
		c.graphAPIBase = base
	}
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	_, err := c.send(ctx, SendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &OutboundText{Body: clip(body, maxTextRunes)},
	})
	return err
}

// SendButtons sends up to three reply buttons with ids btn_0..btn_2.
func (c *Client) SendButtons(ctx context.Context, to, body string, options []string) error {
	buttons := make([]OutboundButton, 0, maxButtons)
	for i, title := range options {
		if i == maxButtons {
			break
		}
		buttons = append(buttons, OutboundButton{
			Type:  "reply",
			Reply: Reply{ID: fmt.Sprintf("btn_%d", i), Title: clip(strings.TrimSpace(title), maxButtonTitleRunes)},
		})
	}
	if len(buttons) == 0 {
		return c.SendText(ctx, to, body)
	}
	_, err := c.send(ctx, SendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &OutboundInteractive{
			Type:   "button",
			Body:   InteractiveBody{Text: clip(body, maxInteractiveRunes)},
			Action: InteractiveAction{Buttons: buttons},
		},
	})
	return err
}

// SendImage sends an image by public link with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, link, caption string) error {
	if strings.TrimSpace(link) == "" {
		return errors.New("whatsapp: image link is required")
	}
	_, err := c.send(ctx, SendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "image",
		Image:            &OutboundImage{Link: link, Caption: clip(caption, maxCaptionRunes)},
	})
	return err
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return nil, errors.New("whatsapp: access token and phone number id are required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.graphAPIBase, c.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}

	var sendResp SendResponse
	if jsonErr := json.Unmarshal(respBody, &sendResp); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("whatsapp: unmarshal response: %w", jsonErr)
	}
	if sendResp.Error != nil || resp.StatusCode != http.StatusOK {
		return &sendResp, &SendError{StatusCode: resp.StatusCode, API: sendResp.Error, Body: string(respBody)}
	}
	return &sendResp, nil
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
