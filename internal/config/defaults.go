package config

const (
	defaultConfigPath           = "~/.config/narrator/config.toml"
	defaultStateDir             = "~/.local/share/narrator"
	defaultStagingDir           = "~/.local/share/narrator/staging"
	defaultLogDir               = "~/.local/share/narrator/logs"
	defaultMusicDir             = "~/.local/share/narrator/music"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "anthropic/claude-sonnet-4"
	defaultLLMReferer           = "https://github.com/narrator-video/narrator"
	defaultLLMTitle             = "narrator"
	defaultLLMTimeoutSeconds    = 120
	defaultSceneCount           = 18
	defaultMinWordsPerScene     = 80
	defaultStyle                = "cinematique"
	defaultNarrationLanguage    = "French"
	defaultImagesBaseURL        = "https://api.replicate.com/v1"
	defaultImagesModel          = "black-forest-labs/flux-1.1-pro-ultra"
	defaultAspectRatio          = "16:9"
	defaultOutputFormat         = "jpg"
	defaultOutputQuality        = 90
	defaultPollIntervalSeconds  = 3
	defaultMaxPolls             = 30
	defaultImagesTimeout        = 60
	defaultAudioBaseURL         = "https://api.elevenlabs.io/v1"
	defaultVoiceID              = "21m00Tcm4TlvDq8ikWAM"
	defaultAudioModel           = "eleven_multilingual_v2"
	defaultAudioTimeout         = 30
	defaultRetryMaxAttempts     = 3
	defaultWordsPerChunk        = 8
	defaultCaptionFont          = "Arial"
	defaultCaptionFontSize      = 22
	defaultPrimaryColour        = "&H00FFFFFF"
	defaultOutlineColour        = "&H00000000"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultWidth                = 1920
	defaultHeight               = 1080
	defaultFPS                  = 25
	defaultCRF                  = 20
	defaultPreset               = "veryfast"
	defaultZoomFactor           = 1.15
	defaultMusicVolumeDB        = -18
	defaultThumbnailWidth       = 1280
	defaultThumbnailHeight      = 720
	defaultBadge                = "NOUVEAU"
	defaultBadgeColor           = "0xE53935"
	defaultMaxLineChars         = 28
	defaultTelegramBaseURL      = "https://api.telegram.org"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogMaxSizeMB         = 50
	defaultLogMaxBackups        = 5
	defaultLogMaxAgeDays        = 30
	defaultWorkers              = 2
	defaultHeartbeatInterval    = 15
	defaultHeartbeatTimeout     = 120
	defaultCleanupIntervalMins  = 60
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			Temperature:    0.8,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Script: Script{
			SceneCount:        defaultSceneCount,
			MinWordsPerScene:  defaultMinWordsPerScene,
			DefaultStyle:      defaultStyle,
			NarrationLanguage: defaultNarrationLanguage,
		},
		Images: Images{
			BaseURL:             defaultImagesBaseURL,
			Model:               defaultImagesModel,
			AspectRatio:         defaultAspectRatio,
			OutputFormat:        defaultOutputFormat,
			OutputQuality:       defaultOutputQuality,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MaxPolls:            defaultMaxPolls,
			TimeoutSeconds:      defaultImagesTimeout,
		},
		Audio: Audio{
			BaseURL:         defaultAudioBaseURL,
			VoiceID:         defaultVoiceID,
			Model:           defaultAudioModel,
			Stability:       0.5,
			SimilarityBoost: 0.8,
			TimeoutSeconds:  defaultAudioTimeout,
		},
		Retry: Retry{
			MaxAttempts:   defaultRetryMaxAttempts,
			DelaysSeconds: []int{5, 15, 30},
		},
		Captions: Captions{
			Enabled:       true,
			WordsPerChunk: defaultWordsPerChunk,
			FontName:      defaultCaptionFont,
			FontSize:      defaultCaptionFontSize,
			PrimaryColour: defaultPrimaryColour,
			OutlineColour: defaultOutlineColour,
			Outline:       2,
			Alignment:     2,
			MarginV:       40,
		},
		Assembly: Assembly{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			Width:         defaultWidth,
			Height:        defaultHeight,
			FPS:           defaultFPS,
			CRF:           defaultCRF,
			Preset:        defaultPreset,
			ZoomFactor:    defaultZoomFactor,
		},
		Music: Music{
			Dir:      defaultMusicDir,
			VolumeDB: defaultMusicVolumeDB,
		},
		Thumbnail: Thumbnail{
			Enabled:      true,
			Width:        defaultThumbnailWidth,
			Height:       defaultThumbnailHeight,
			Badge:        defaultBadge,
			BadgeColor:   defaultBadgeColor,
			MaxLineChars: defaultMaxLineChars,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			TelegramBaseURL: defaultTelegramBaseURL,
		},
		Storage: Storage{
			UseSSL: true,
		},
		Workflow: Workflow{
			Workers:                defaultWorkers,
			QueuePollInterval:      5,
			ErrorRetryInterval:     10,
			HeartbeatInterval:      defaultHeartbeatInterval,
			HeartbeatTimeout:       defaultHeartbeatTimeout,
			CleanupIntervalMinutes: defaultCleanupIntervalMins,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
			Compress:   true,
		},
	}
}
