package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookRequest is the minimal Slack-compatible webhook body.
type WebhookRequest struct {
	Text string `json:"text"`
}

// sendWebhook POSTs the message to a configured URL. No retry and no
// signature verification.
func sendWebhook(ctx context.Context, webhookURL string, message string) error {
	body, err := json.Marshal(WebhookRequest{Text: message})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
