package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studieo/internal/domain/notification"
)

var (
	ErrNotConfigured  = errors.New("mailer: base url not configured")
	ErrUnauthorized   = errors.New("mailer: unauthorized")
	ErrBadRequest     = errors.New("mailer: bad request")
	ErrRateLimited    = errors.New("mailer: rate limited")
	ErrDeliveryFailed = errors.New("mailer: delivery failed")
)

// Client talks to the transactional email API. It implements
// notification.Dispatcher.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, from string, httpClient *http.Client) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		from:       strings.TrimSpace(from),
		httpClient: httpClient,
	}
}

type sendRequest struct {
	Template string                 `json:"template"`
	From     string                 `json:"from"`
	To       notification.Recipient `json:"to"`
	Params   map[string]string      `json:"params,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) Send(ctx context.Context, msg notification.Message) error {
	if strings.TrimSpace(msg.To.Email) == "" || strings.TrimSpace(msg.Template) == "" {
		return ErrBadRequest
	}
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	payload := sendRequest{Template: msg.Template, From: c.from, To: msg.To, Params: msg.Params}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read send response: %w", err)
	}
	return mapSendError(resp.StatusCode, payloadBytes)
}

func mapSendError(status int, payload []byte) error {
	var parsed errorResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		message := strings.TrimSpace(string(payload))
		if message == "" {
			return fmt.Errorf("mailer api status %d", status)
		}
		return fmt.Errorf("mailer api status %d: %s", status, message)
	}
	switch parsed.Error {
	case "unauthorized":
		return ErrUnauthorized
	case "validation":
		return ErrBadRequest
	case "rate_limited":
		return ErrRateLimited
	case "delivery_failed":
		return ErrDeliveryFailed
	default:
		return fmt.Errorf("mailer api error: %s", parsed.Error)
	}
}
