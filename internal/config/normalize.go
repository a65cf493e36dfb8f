package config

import (
	"fmt"
	"os"
	"strings"

	"narrator/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeScript()
	c.normalizeImages()
	c.normalizeAudio()
	c.normalizeRetry()
	c.normalizeAssembly()
	if err := c.normalizeMusic(); err != nil {
		return err
	}
	if err := c.normalizeThumbnail(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeStorage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupEnv("OPENROUTER_API_KEY", "LLM_API_KEY")
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeScript() {
	c.Script.DefaultStyle = strings.ToLower(strings.TrimSpace(c.Script.DefaultStyle))
	if c.Script.DefaultStyle == "" {
		c.Script.DefaultStyle = defaultStyle
	}
	c.Script.NarrationLanguage = language.Name(c.Script.NarrationLanguage)
	if c.Script.NarrationLanguage == "" {
		c.Script.NarrationLanguage = defaultNarrationLanguage
	}
}

func (c *Config) normalizeImages() {
	c.Images.APIToken = strings.TrimSpace(c.Images.APIToken)
	if c.Images.APIToken == "" {
		c.Images.APIToken = lookupEnv("REPLICATE_API_TOKEN")
	}
	c.Images.BaseURL = strings.TrimRight(strings.TrimSpace(c.Images.BaseURL), "/")
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = defaultImagesBaseURL
	}
	c.Images.Model = strings.TrimSpace(c.Images.Model)
	if c.Images.Model == "" {
		c.Images.Model = defaultImagesModel
	}
	c.Images.OutputFormat = strings.ToLower(strings.TrimSpace(c.Images.OutputFormat))
	if c.Images.OutputFormat == "" {
		c.Images.OutputFormat = defaultOutputFormat
	}
	if strings.TrimSpace(c.Images.AspectRatio) == "" {
		c.Images.AspectRatio = defaultAspectRatio
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.APIKey = strings.TrimSpace(c.Audio.APIKey)
	if c.Audio.APIKey == "" {
		c.Audio.APIKey = lookupEnv("ELEVENLABS_API_KEY")
	}
	c.Audio.VoiceID = strings.TrimSpace(c.Audio.VoiceID)
	if value := lookupEnv("ELEVENLABS_VOICE_ID"); value != "" && c.Audio.VoiceID == defaultVoiceID {
		c.Audio.VoiceID = value
	}
	if c.Audio.VoiceID == "" {
		c.Audio.VoiceID = defaultVoiceID
	}
	c.Audio.BaseURL = strings.TrimRight(strings.TrimSpace(c.Audio.BaseURL), "/")
	if c.Audio.BaseURL == "" {
		c.Audio.BaseURL = defaultAudioBaseURL
	}
	if strings.TrimSpace(c.Audio.Model) == "" {
		c.Audio.Model = defaultAudioModel
	}
}

func (c *Config) normalizeRetry() {
	if len(c.Retry.DelaysSeconds) == 0 {
		c.Retry.DelaysSeconds = []int{5, 15, 30}
	}
}

func (c *Config) normalizeAssembly() {
	if strings.TrimSpace(c.Assembly.FFmpegBinary) == "" {
		c.Assembly.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Assembly.FFprobeBinary) == "" {
		c.Assembly.FFprobeBinary = defaultFFprobeBinary
	}
	if strings.TrimSpace(c.Assembly.Preset) == "" {
		c.Assembly.Preset = defaultPreset
	}
	if c.Assembly.ZoomFactor <= 1 {
		c.Assembly.ZoomFactor = defaultZoomFactor
	}
}

func (c *Config) normalizeMusic() error {
	var err error
	if c.Music.Dir, err = expandPath(strings.TrimSpace(c.Music.Dir)); err != nil {
		return fmt.Errorf("music.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeThumbnail() error {
	var err error
	if c.Thumbnail.FontFile, err = expandPath(strings.TrimSpace(c.Thumbnail.FontFile)); err != nil {
		return fmt.Errorf("thumbnail.font_file: %w", err)
	}
	c.Thumbnail.Badge = strings.TrimSpace(c.Thumbnail.Badge)
	c.Thumbnail.Language = language.Code(c.Thumbnail.Language)
	if c.Thumbnail.Language == "" {
		c.Thumbnail.Language = language.Code(c.Script.NarrationLanguage)
	}
	if strings.TrimSpace(c.Thumbnail.BadgeColor) == "" {
		c.Thumbnail.BadgeColor = defaultBadgeColor
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.TelegramBotToken = strings.TrimSpace(c.Notifications.TelegramBotToken)
	if c.Notifications.TelegramBotToken == "" {
		c.Notifications.TelegramBotToken = lookupEnv("TELEGRAM_BOT_TOKEN")
	}
	c.Notifications.TelegramChatID = strings.TrimSpace(c.Notifications.TelegramChatID)
	if c.Notifications.TelegramChatID == "" {
		c.Notifications.TelegramChatID = lookupEnv("TELEGRAM_CHAT_ID")
	}
	c.Notifications.TelegramBaseURL = strings.TrimRight(strings.TrimSpace(c.Notifications.TelegramBaseURL), "/")
	if c.Notifications.TelegramBaseURL == "" {
		c.Notifications.TelegramBaseURL = defaultTelegramBaseURL
	}
	c.Notifications.DownloadBaseURL = strings.TrimRight(strings.TrimSpace(c.Notifications.DownloadBaseURL), "/")
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if strings.TrimSpace(c.Storage.AccessKey) == "" {
		c.Storage.AccessKey = lookupEnv("NARRATOR_S3_ACCESS_KEY")
	}
	if strings.TrimSpace(c.Storage.SecretKey) == "" {
		c.Storage.SecretKey = lookupEnv("NARRATOR_S3_SECRET_KEY")
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
