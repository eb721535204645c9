package insights

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stratosphere-bi/stratosphere/internal/anomaly"
)

// Narrator turns a list of anomaly findings into a short plain-language
// summary via the OpenAI Chat Completions API.
type Narrator struct {
	client *openai.Client
	model  string
}

func NewNarrator(apiKey string, model string) *Narrator {
	return &Narrator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (n *Narrator) Narrate(ctx context.Context, metric string, findings []anomaly.Finding) (string, error) {
	if len(findings) == 0 {
		return fmt.Sprintf("No anomalies detected for %s.", metric), nil
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     n.model,
		MaxTokens: 300,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a business analyst. Summarize metric anomalies for a non-technical reader in two or three sentences. Mention severity and likely business impact.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: describeFindings(metric, findings),
			},
		},
	})

	if err != nil {
		return "", fmt.Errorf("narration request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("narration returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func describeFindings(metric string, findings []anomaly.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Anomalies detected for metric %q:\n", metric)

	for _, f := range findings {
		fmt.Fprintf(&b, "- %s on %s: value %.2f, deviation %.1f, severity %s, impact %s\n",
			f.Kind, f.Date.Format("2006-01-02"), f.Value, f.Deviation, f.Severity, f.Impact)
	}

	return b.String()
}
