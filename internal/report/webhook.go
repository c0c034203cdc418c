package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// maxWebhookFindings caps the findings listed in one message.
const maxWebhookFindings = 5

// SendWebhook posts a short summary to a chat webhook (Discord/Slack style
// {"content": ...} body). Nothing is sent when url is empty or nothing passed.
func SendWebhook(ctx context.Context, client *http.Client, url string, result *Result) error {
	findings := result.Findings()
	if url == "" || len(findings) == 0 {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	message := fmt.Sprintf("**xssdetective run completed**\nHost page: %s\nPassed checks: **%d** of %d\nDuration: %s",
		result.HostURL, result.Passed, result.Dispatched, result.Duration)
	message += "\n\n**Top Findings:**"
	for i, f := range findings {
		if i >= maxWebhookFindings {
			break
		}
		message += fmt.Sprintf("\n- %s (%s) test %d: %s", f.Field, f.FieldID, f.TestIndex, f.Test)
	}

	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}
