package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"narrator/internal/config"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENROUTER_API_KEY", "LLM_API_KEY", "REPLICATE_API_TOKEN", "ELEVENLABS_API_KEY", "ELEVENLABS_VOICE_ID", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearProviderEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "narrator", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "narrator", "queue.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Script.DefaultStyle != "cinematique" {
		t.Fatalf("unexpected default style: %q", cfg.Script.DefaultStyle)
	}
	if cfg.Images.PollIntervalSeconds != 3 || cfg.Images.MaxPolls != 30 {
		t.Fatalf("unexpected polling defaults: %d/%d", cfg.Images.PollIntervalSeconds, cfg.Images.MaxPolls)
	}
	if cfg.Captions.WordsPerChunk != 8 {
		t.Fatalf("unexpected words per chunk: %d", cfg.Captions.WordsPerChunk)
	}
	if cfg.Music.VolumeDB != -18 {
		t.Fatalf("unexpected music volume: %v", cfg.Music.VolumeDB)
	}
	wantDelays := []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
	gotDelays := cfg.RetryDelays()
	if len(gotDelays) != len(wantDelays) {
		t.Fatalf("unexpected retry delays: %v", gotDelays)
	}
	for i := range wantDelays {
		if gotDelays[i] != wantDelays[i] {
			t.Fatalf("retry delay %d = %v, want %v", i, gotDelays[i], wantDelays[i])
		}
	}
	if missing := cfg.MissingCredentials(); len(missing) != 3 {
		t.Fatalf("expected three missing credentials, got %v", missing)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "narrator.toml")

	type payload struct {
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		Workflow struct {
			Workers           int `toml:"workers"`
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
		Retry struct {
			MaxAttempts   int   `toml:"max_attempts"`
			DelaysSeconds []int `toml:"delays_seconds"`
		} `toml:"retry"`
	}
	custom := payload{}
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "openai/gpt-4o-mini"
	custom.Workflow.Workers = 4
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	custom.Retry.MaxAttempts = 5
	custom.Retry.DelaysSeconds = []int{1, 2}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" || cfg.LLM.Model != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected llm settings: %+v", cfg.LLM)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Workflow.Workers)
	}
	if cfg.Retry.MaxAttempts != 5 || len(cfg.Retry.DelaysSeconds) != 2 {
		t.Fatalf("unexpected retry settings: %+v", cfg.Retry)
	}
}

func TestNarrationLanguageResolvesCodes(t *testing.T) {
	clearProviderEnv(t)
	configPath := filepath.Join(t.TempDir(), "narrator.toml")
	content := "[script]\nnarration_language = \"deu\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Script.NarrationLanguage != "German" {
		t.Fatalf("narration language = %q, want German", cfg.Script.NarrationLanguage)
	}
	if cfg.Thumbnail.Language != "de" {
		t.Fatalf("thumbnail language = %q, want de", cfg.Thumbnail.Language)
	}
}

func TestEnvFallbackFillsMissingKeys(t *testing.T) {
	clearProviderEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "narrator.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\napi_key = \"file-llm\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENROUTER_API_KEY", "env-llm")
	t.Setenv("REPLICATE_API_TOKEN", "env-replicate")
	t.Setenv("ELEVENLABS_API_KEY", "env-eleven")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-llm" {
		t.Errorf("expected file LLM key to win, got %q", cfg.LLM.APIKey)
	}
	if cfg.Images.APIToken != "env-replicate" {
		t.Errorf("expected Replicate token from env, got %q", cfg.Images.APIToken)
	}
	if cfg.Audio.APIKey != "env-eleven" {
		t.Errorf("expected ElevenLabs key from env, got %q", cfg.Audio.APIKey)
	}
	if missing := cfg.MissingCredentials(); len(missing) != 0 {
		t.Errorf("expected no missing credentials, got %v", missing)
	}
}

func TestDotEnvNextToConfigIsLoaded(t *testing.T) {
	clearProviderEnv(t)
	os.Unsetenv("TELEGRAM_CHAT_ID")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "narrator.toml")
	if err := os.WriteFile(configPath, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("TELEGRAM_CHAT_ID=4242\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.TelegramChatID != "4242" {
		t.Fatalf("expected chat id from .env, got %q", cfg.Notifications.TelegramChatID)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "REPLICATE_API_TOKEN") {
		t.Fatalf("sample config missing credential hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StagingDir, "narrator") {
		t.Fatalf("expected staging dir to contain narrator, got %q", cfg.Paths.StagingDir)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected sample retry attempts: %d", cfg.Retry.MaxAttempts)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"workers", func(c *config.Config) { c.Workflow.Workers = 0 }},
		{"heartbeat interval", func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 }},
		{"heartbeat timeout", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }},
		{"retry attempts", func(c *config.Config) { c.Retry.MaxAttempts = 0 }},
		{"retry delay", func(c *config.Config) { c.Retry.DelaysSeconds = []int{5, -1} }},
		{"chunk size", func(c *config.Config) { c.Captions.WordsPerChunk = 0 }},
		{"odd width", func(c *config.Config) { c.Assembly.Width = 1919 }},
		{"music gain", func(c *config.Config) { c.Music.VolumeDB = 3 }},
		{"storage bucket", func(c *config.Config) {
			c.Storage.Enabled = true
			c.Storage.Endpoint = "s3.local"
		}},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
