package preflight

import (
	"fmt"
	"strings"

	"narrator/internal/config"
)

// CheckNotifications summarizes which notification backends are configured.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	n := cfg.Notifications
	var backends []string
	if n.NtfyTopic != "" {
		backends = append(backends, "ntfy")
	}
	switch {
	case n.TelegramBotToken != "" && n.TelegramChatID != "":
		backends = append(backends, "telegram")
	case n.TelegramBotToken != "" || n.TelegramChatID != "":
		return Result{Name: name, Detail: "telegram needs both bot token and chat id"}
	}
	if len(backends) == 0 {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(backends, ", ")}
}

// CheckStorage summarizes the S3 publishing target.
func CheckStorage(cfg *config.Config) Result {
	const name = "Object storage"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Storage.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled (local files only)"}
	}
	if cfg.Storage.Endpoint == "" || cfg.Storage.Bucket == "" {
		return Result{Name: name, Detail: "Missing endpoint or bucket"}
	}
	if cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "" {
		return Result{Name: name, Detail: "Missing access credentials"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("s3://%s on %s", cfg.Storage.Bucket, cfg.Storage.Endpoint)}
}
