package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyReady(ctx context.Context, id int64, title, ref string) error {
	message := fmt.Sprintf("✅ Video ready: %s (item %d)", displayTitle(title), id)
	if ref = strings.TrimSpace(ref); ref != "" {
		message = fmt.Sprintf("%s\n%s", message, ref)
	}
	return n.send(ctx, payload{
		title:    "Narrator - Ready",
		message:  message,
		tags:     []string{"narrator", "video", "ready"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyFailed(ctx context.Context, id int64, title, summary string) error {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = "unknown"
	}
	return n.send(ctx, payload{
		title:    "Narrator - Failed",
		message:  fmt.Sprintf("❌ Pipeline failed: %s (item %d)\n%s", displayTitle(title), id, truncateRunes(summary, telegramErrorLimit)),
		tags:     []string{"narrator", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Narrator - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"narrator", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return drainError("ntfy", resp, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
