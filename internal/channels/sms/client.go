// Package sms integrates the external SMS messaging provider. Sends are
// synchronous: the provider accepts or rejects the message immediately.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"leaseline_backend/platform/config"
	"leaseline_backend/platform/logger"
	"leaseline_backend/platform/phone"
)

type Client struct {
	baseURL    string
	apiKey     string
	fromNumber string
	http       *http.Client
	log        *logger.Logger
}

type providerMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type providerMessageResponse struct {
	MessageID string `json:"message_id"`
}

// NewClient creates an SMS client, or nil when the provider is not
// configured.
func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if !cfg.IsSMSEnabled() {
		return nil
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GetSMSProviderURL(), "/"),
		apiKey:     cfg.GetSMSProviderAPIKey(),
		fromNumber: cfg.GetSMSFromNumber(),
		http:       &http.Client{Timeout: cfg.GetSMSProviderTimeout()},
		log:        log,
	}
}

// SendMessage delivers one text message and returns the provider's message
// ID.
func (c *Client) SendMessage(ctx context.Context, to, body string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("sms provider not configured")
	}

	payload := providerMessageRequest{
		From: c.fromNumber,
		To:   phone.NormalizeE164(to),
		Body: body,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sms payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sms provider request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed providerMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode sms response: %w", err)
	}

	c.log.Info("sms dispatched", "message_id", parsed.MessageID)
	return parsed.MessageID, nil
}
