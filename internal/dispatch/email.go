package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stratosphere-bi/stratosphere/internal/config"
	"github.com/stratosphere-bi/stratosphere/internal/types"
)

// EmailRequest is the payload for the downstream mail-sender function.
type EmailRequest struct {
	To           string            `json:"to"`
	Template     string            `json:"template"`
	TemplateVars map[string]string `json:"templateVars"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func sendEmail(ctx context.Context, ev Event, cfg types.ActionConfig) error {
	if config.App.MailFunctionURL == "" {
		return fmt.Errorf("mail function URL is not configured")
	}
	if cfg.To == "" {
		return fmt.Errorf("no destination address in action config")
	}

	template := cfg.Template
	if template == "" {
		template = "automation-triggered"
	}

	payload := EmailRequest{
		To:       cfg.To,
		Template: template,
		TemplateVars: map[string]string{
			"rule_name":    ev.Rule.Name,
			"metric":       ev.Condition.Metric,
			"currentValue": formatNumber(ev.Value),
			"operator":     string(ev.Condition.Operator),
			"threshold":    formatNumber(ev.Condition.Threshold),
			"triggeredAt":  ev.TriggeredAt.Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.App.MailFunctionURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if config.App.MailFunctionToken != "" {
		req.Header.Set("Authorization", "Bearer "+config.App.MailFunctionToken)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to invoke mail function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail function returned status %d", resp.StatusCode)
	}

	return nil
}
