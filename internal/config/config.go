package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// LLM contains the chat-completions connection used for script generation.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Script controls what the script generator asks for.
type Script struct {
	SceneCount        int    `toml:"scene_count"`
	MinWordsPerScene  int    `toml:"min_words_per_scene"`
	DefaultStyle      string `toml:"default_style"`
	NarrationLanguage string `toml:"narration_language"`
}

// Images contains the Replicate prediction settings.
type Images struct {
	APIToken            string `toml:"api_token"`
	BaseURL             string `toml:"base_url"`
	Model               string `toml:"model"`
	AspectRatio         string `toml:"aspect_ratio"`
	OutputFormat        string `toml:"output_format"`
	OutputQuality       int    `toml:"output_quality"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MaxPolls            int    `toml:"max_polls"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
}

// Audio contains the ElevenLabs text-to-speech settings.
type Audio struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	VoiceID         string  `toml:"voice_id"`
	Model           string  `toml:"model"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Retry configures the generation retry policy.
type Retry struct {
	MaxAttempts   int   `toml:"max_attempts"`
	DelaysSeconds []int `toml:"delays_seconds"`
}

// Captions controls caption chunking and the burned-in style.
type Captions struct {
	Enabled       bool   `toml:"enabled"`
	WordsPerChunk int    `toml:"words_per_chunk"`
	FontName      string `toml:"font_name"`
	FontSize      int    `toml:"font_size"`
	PrimaryColour string `toml:"primary_colour"`
	OutlineColour string `toml:"outline_colour"`
	Outline       int    `toml:"outline"`
	Alignment     int    `toml:"alignment"`
	MarginV       int    `toml:"margin_v"`
}

// Assembly contains ffmpeg rendering settings.
type Assembly struct {
	FFmpegBinary  string  `toml:"ffmpeg_binary"`
	FFprobeBinary string  `toml:"ffprobe_binary"`
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	FPS           int     `toml:"fps"`
	CRF           int     `toml:"crf"`
	Preset        string  `toml:"preset"`
	ZoomFactor    float64 `toml:"zoom_factor"`
	MotionSeed    int64   `toml:"motion_seed"`
}

// Music contains the background bed library.
type Music struct {
	Dir      string  `toml:"dir"`
	VolumeDB float64 `toml:"volume_db"`
}

// Thumbnail controls the generated cover image.
type Thumbnail struct {
	Enabled      bool   `toml:"enabled"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	Badge        string `toml:"badge"`
	BadgeColor   string `toml:"badge_color"`
	FontFile     string `toml:"font_file"`
	MaxLineChars int    `toml:"max_line_chars"`
	Language     string `toml:"language"`
}

// Notifications contains ntfy and Telegram settings.
type Notifications struct {
	NtfyTopic        string `toml:"ntfy_topic"`
	RequestTimeout   int    `toml:"request_timeout"`
	TelegramBotToken string `toml:"telegram_bot_token"`
	TelegramChatID   string `toml:"telegram_chat_id"`
	TelegramBaseURL  string `toml:"telegram_base_url"`
	DownloadBaseURL  string `toml:"download_base_url"`
}

// Storage contains the optional S3-compatible publishing target.
type Storage struct {
	Enabled       bool   `toml:"enabled"`
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	UseSSL        bool   `toml:"use_ssl"`
	Prefix        string `toml:"prefix"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	Workers                int `toml:"workers"`
	QueuePollInterval      int `toml:"queue_poll_interval"`
	ErrorRetryInterval     int `toml:"error_retry_interval"`
	HeartbeatInterval      int `toml:"heartbeat_interval"`
	HeartbeatTimeout       int `toml:"heartbeat_timeout"`
	CleanupIntervalMinutes int `toml:"cleanup_interval_minutes"`
}

// Logging contains configuration for log output and file rotation.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config encapsulates all configuration values for narrator.
//
// Configuration sections by subsystem:
//   - Paths: state, staging and log directories
//   - LLM, Script: script generation
//   - Images, Audio: Replicate and ElevenLabs providers
//   - Retry: generation retry policy
//   - Captions, Assembly, Music, Thumbnail: media assembly
//   - Notifications, Storage: delivery of finished items
//   - Workflow, Logging: daemon behaviour
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Script        Script        `toml:"script"`
	Images        Images        `toml:"images"`
	Audio         Audio         `toml:"audio"`
	Retry         Retry         `toml:"retry"`
	Captions      Captions      `toml:"captions"`
	Assembly      Assembly      `toml:"assembly"`
	Music         Music         `toml:"music"`
	Thumbnail     Thumbnail     `toml:"thumbnail"`
	Notifications Notifications `toml:"notifications"`
	Storage       Storage       `toml:"storage"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the config (or in the
// working directory) is loaded first; it never overrides variables already set.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(configDir string) error {
	candidates := []string{filepath.Join(configDir, ".env")}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load env file %s: %w", candidate, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("narrator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The music directory is optional and never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "narratord.lock")
}

// LogFilePath returns the rotated log file written by the daemon, or an empty
// string when file logging is disabled.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "narrator.log")
}

// RetryDelays converts the configured retry delays to durations.
func (c *Config) RetryDelays() []time.Duration {
	out := make([]time.Duration, 0, len(c.Retry.DelaysSeconds))
	for _, seconds := range c.Retry.DelaysSeconds {
		out = append(out, time.Duration(seconds)*time.Second)
	}
	return out
}

// PollInterval returns the image prediction polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Images.PollIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
