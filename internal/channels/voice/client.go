// Package voice integrates the external voice-AI calling provider. Dispatch
// is fire-and-forget: the provider rings the lead and reports the outcome
// later through the result webhook.
package voice

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
	baseURL        string
	apiKey         string
	webhookBaseURL string
	http           *http.Client
	log            *logger.Logger
}

// CallRequest is the dispatch payload for one outbound call.
type CallRequest struct {
	Phone    string
	Script   string
	VoiceID  string
	Metadata map[string]string
}

type providerCallRequest struct {
	Phone      string            `json:"phone"`
	Prompt     string            `json:"prompt"`
	Voice      string            `json:"voice,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	WebhookURL string            `json:"webhook_url"`
}

type providerCallResponse struct {
	CallID string `json:"call_id"`
}

// NewClient creates a voice client, or nil when the provider is not
// configured. A nil client fails all dispatches, which the dispatcher
// treats as a channel failure.
func NewClient(cfg config.VoiceConfig, log *logger.Logger) *Client {
	if !cfg.IsVoiceEnabled() {
		return nil
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.GetVoiceProviderURL(), "/"),
		apiKey:         cfg.GetVoiceProviderAPIKey(),
		webhookBaseURL: strings.TrimRight(cfg.GetVoiceResultWebhookBaseURL(), "/"),
		http:           &http.Client{Timeout: cfg.GetVoiceProviderTimeout()},
		log:            log,
	}
}

// PlaceCall asks the provider to ring the lead with the given script. The
// returned call ID correlates the later result webhook. A timeout is a
// dispatch failure like any other.
func (c *Client) PlaceCall(ctx context.Context, req CallRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("voice provider not configured")
	}

	payload := providerCallRequest{
		Phone:      phone.NormalizeE164(req.Phone),
		Prompt:     req.Script,
		Voice:      req.VoiceID,
		Metadata:   req.Metadata,
		WebhookURL: c.webhookBaseURL + "/api/v1/webhook/voice/results",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal call payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calls", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("voice provider request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("voice provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed providerCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode call response: %w", err)
	}

	c.log.Info("voice call dispatched", "call_id", parsed.CallID)
	return parsed.CallID, nil
}
