package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateAssembly(); err != nil {
		return err
	}
	if err := c.validateThumbnail(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

// MissingCredentials lists provider credentials that are not configured. An
// empty result means the full pipeline can run.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key (OPENROUTER_API_KEY)")
	}
	if c.Images.APIToken == "" {
		missing = append(missing, "images.api_token (REPLICATE_API_TOKEN)")
	}
	if c.Audio.APIKey == "" {
		missing = append(missing, "audio.api_key (ELEVENLABS_API_KEY)")
	}
	return missing
}

func (c *Config) validateScript() error {
	if c.Script.SceneCount <= 0 {
		return errors.New("script.scene_count must be positive")
	}
	if c.Script.MinWordsPerScene < 0 {
		return errors.New("script.min_words_per_scene must be >= 0")
	}
	return nil
}

func (c *Config) validateProviders() error {
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":          c.LLM.TimeoutSeconds,
		"images.poll_interval_seconds": c.Images.PollIntervalSeconds,
		"images.max_polls":             c.Images.MaxPolls,
		"images.timeout_seconds":       c.Images.TimeoutSeconds,
		"audio.timeout_seconds":        c.Audio.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Images.OutputQuality < 1 || c.Images.OutputQuality > 100 {
		return errors.New("images.output_quality must be between 1 and 100")
	}
	if c.Audio.Stability < 0 || c.Audio.Stability > 1 {
		return errors.New("audio.stability must be between 0 and 1")
	}
	if c.Audio.SimilarityBoost < 0 || c.Audio.SimilarityBoost > 1 {
		return errors.New("audio.similarity_boost must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	for i, delay := range c.Retry.DelaysSeconds {
		if delay < 0 {
			return fmt.Errorf("retry.delays_seconds[%d] must be >= 0", i)
		}
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if c.Captions.WordsPerChunk <= 0 {
		return errors.New("captions.words_per_chunk must be positive")
	}
	if c.Captions.FontSize <= 0 {
		return errors.New("captions.font_size must be positive")
	}
	if c.Captions.Alignment < 1 || c.Captions.Alignment > 9 {
		return errors.New("captions.alignment must be a numpad position between 1 and 9")
	}
	return nil
}

func (c *Config) validateAssembly() error {
	if err := ensurePositiveMap(map[string]int{
		"assembly.width":  c.Assembly.Width,
		"assembly.height": c.Assembly.Height,
		"assembly.fps":    c.Assembly.FPS,
	}); err != nil {
		return err
	}
	if c.Assembly.Width%2 != 0 || c.Assembly.Height%2 != 0 {
		return errors.New("assembly.width and assembly.height must be even")
	}
	if c.Assembly.CRF < 0 || c.Assembly.CRF > 51 {
		return errors.New("assembly.crf must be between 0 and 51")
	}
	if c.Music.VolumeDB > 0 {
		return errors.New("music.volume_db must be <= 0")
	}
	return nil
}

func (c *Config) validateThumbnail() error {
	if !c.Thumbnail.Enabled {
		return nil
	}
	if err := ensurePositiveMap(map[string]int{
		"thumbnail.width":          c.Thumbnail.Width,
		"thumbnail.height":         c.Thumbnail.Height,
		"thumbnail.max_line_chars": c.Thumbnail.MaxLineChars,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.Enabled {
		return nil
	}
	if c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set when storage.enabled is true")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket must be set when storage.enabled is true")
	}
	if strings.TrimSpace(c.Storage.AccessKey) == "" || strings.TrimSpace(c.Storage.SecretKey) == "" {
		return errors.New("storage.access_key and storage.secret_key must be set when storage.enabled is true (or set NARRATOR_S3_ACCESS_KEY / NARRATOR_S3_SECRET_KEY)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":                  c.Workflow.Workers,
		"notifications.request_timeout":     c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":      c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":     c.Workflow.ErrorRetryInterval,
		"workflow.cleanup_interval_minutes": c.Workflow.CleanupIntervalMinutes,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
