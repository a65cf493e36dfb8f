package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
)

const telegramErrorLimit = 300

type telegramService struct {
	baseURL         string
	token           string
	chatID          string
	downloadBaseURL string
	client          *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *telegramService) NotifyReady(ctx context.Context, id int64, title, ref string) error {
	lines := []string{
		"✅ <b>Vidéo prête !</b>",
		fmt.Sprintf("🎬 <b>Titre :</b> %s", html.EscapeString(displayTitle(title))),
		fmt.Sprintf("🆔 <b>ID :</b> %d", id),
	}
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		lines = append(lines, fmt.Sprintf("📥 <b>Download :</b> %s", html.EscapeString(ref)))
	case t.downloadBaseURL != "":
		lines = append(lines, fmt.Sprintf("📥 <b>Download :</b> %s/%d", html.EscapeString(t.downloadBaseURL), id))
	case ref != "":
		lines = append(lines, fmt.Sprintf("📁 <b>Fichier :</b> <code>%s</code>", html.EscapeString(ref)))
	}
	return t.send(ctx, strings.Join(lines, "\n"))
}

func (t *telegramService) NotifyFailed(ctx context.Context, id int64, title, summary string) error {
	message := fmt.Sprintf(
		"❌ <b>Pipeline échoué</b>\n🎬 <b>Titre :</b> %s\n🆔 <b>ID :</b> %d\n⚠️ <b>Erreur :</b> <code>%s</code>",
		html.EscapeString(displayTitle(title)),
		id,
		html.EscapeString(truncateRunes(summary, telegramErrorLimit)),
	)
	return t.send(ctx, message)
}

func (t *telegramService) TestNotification(ctx context.Context) error {
	return t.send(ctx, "🧪 <b>Narrator</b> notification test")
}

func (t *telegramService) send(ctx context.Context, text string) error {
	body, err := json.Marshal(telegramMessage{ChatID: t.chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("send telegram notification: %w", redactToken(err, t.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return drainError("telegram", resp, respBody)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return redactedError{msg: strings.ReplaceAll(err.Error(), token, "***"), err: err}
}
