package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"narrator/internal/config"
)

const userAgent = "narrator/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	// NotifyReady announces a finished item. ref is the primary artifact
	// reference: a published URL, a download link or the local final path.
	NotifyReady(ctx context.Context, id int64, title, ref string) error
	// NotifyFailed announces a failed run with a short error summary.
	NotifyFailed(ctx context.Context, id int64, title, summary string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service from configuration. Every
// configured backend receives each event; with none configured a noop
// implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var backends []Service
	if topic := strings.TrimSpace(n.NtfyTopic); topic != "" {
		backends = append(backends, &ntfyService{endpoint: topic, client: client})
	}
	token := strings.TrimSpace(n.TelegramBotToken)
	chatID := strings.TrimSpace(n.TelegramChatID)
	if token != "" && chatID != "" {
		backends = append(backends, &telegramService{
			baseURL:         strings.TrimRight(n.TelegramBaseURL, "/"),
			token:           token,
			chatID:          chatID,
			downloadBaseURL: n.DownloadBaseURL,
			client:          client,
		})
	}

	switch len(backends) {
	case 0:
		return noopService{}
	case 1:
		return backends[0]
	default:
		return multiService(backends)
	}
}

// multiService delivers to every backend and joins their errors.
type multiService []Service

func (m multiService) NotifyReady(ctx context.Context, id int64, title, ref string) error {
	return m.each(func(s Service) error { return s.NotifyReady(ctx, id, title, ref) })
}

func (m multiService) NotifyFailed(ctx context.Context, id int64, title, summary string) error {
	return m.each(func(s Service) error { return s.NotifyFailed(ctx, id, title, summary) })
}

func (m multiService) TestNotification(ctx context.Context) error {
	return m.each(func(s Service) error { return s.TestNotification(ctx) })
}

func (m multiService) each(fn func(Service) error) error {
	var errs []error
	for _, backend := range m {
		if err := fn(backend); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) NotifyReady(context.Context, int64, string, string) error  { return nil }
func (noopService) NotifyFailed(context.Context, int64, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }

func displayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Sans titre"
	}
	return title
}

func truncateRunes(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}

func drainError(service string, resp *http.Response, body []byte) error {
	return fmt.Errorf("%s returned %d: %s", service, resp.StatusCode, strings.TrimSpace(string(body)))
}
