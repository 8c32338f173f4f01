package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/recmeet/recmeet/internal/language"
	"github.com/recmeet/recmeet/internal/models/whisper"
	"github.com/recmeet/recmeet/internal/store"
	"github.com/recmeet/recmeet/internal/summarize"
	"github.com/recmeet/recmeet/internal/transcriber"
)

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Summarization SummarizationConfig `toml:"summarization"`
	Storage       StorageConfig       `toml:"storage"`
	Queue         QueueConfig         `toml:"queue"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	UploadDir   string `toml:"upload_dir"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
	LogLevel    string `toml:"log_level"`
}

type TranscriptionConfig struct {
	Provider        string  `toml:"provider"`
	APIKey          string  `toml:"api_key"`
	Model           string  `toml:"model"`
	ModelPath       string  `toml:"model_path"`
	Language        string  `toml:"language"`
	Threads         int     `toml:"threads"`
	MaxChunkSeconds float64 `toml:"max_chunk_seconds"`
}

type SummarizationConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

type StorageConfig struct {
	Backend        string        `toml:"backend"` // "gcs" or "local"
	Bucket         string        `toml:"bucket"`
	LocalDir       string        `toml:"local_dir"`
	VerifyAttempts int           `toml:"verify_attempts"`
	VerifyInterval time.Duration `toml:"verify_interval"`
}

type QueueConfig struct {
	Backend   string `toml:"backend"` // "cloudtasks" or "memory"
	Project   string `toml:"project"`
	Location  string `toml:"location"`
	Queue     string `toml:"queue"`
	TargetURL string `toml:"target_url"`
	Workers   int    `toml:"workers"`
}

type NotificationsConfig struct {
	Enabled         bool   `toml:"enabled"`
	FirebaseProject string `toml:"firebase_project"`
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	cfg := transcriber.Config{
		Provider:  c.Transcription.Provider,
		APIKey:    c.Transcription.APIKey,
		Model:     c.Transcription.Model,
		ModelPath: c.Transcription.ModelPath,
		Language:  c.Transcription.Language,
		Threads:   c.Transcription.Threads,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	// an explicit model_path wins; otherwise fall back to a model
	// downloaded via "recmeet model download"
	if cfg.Provider == "whisper.cpp" && cfg.ModelPath == "" {
		if path, err := whisper.InstalledPath(cfg.Model); err == nil {
			cfg.ModelPath = path
		}
	}
	return cfg
}

func (c *Config) ToSummarizeConfig() summarize.Config {
	cfg := summarize.Config{
		APIKey: c.Summarization.APIKey,
		Model:  c.Summarization.Model,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg
}

func (c *Config) ToVerifyConfig() store.VerifyConfig {
	return store.VerifyConfig{
		Attempts: c.Storage.VerifyAttempts,
		Interval: c.Storage.VerifyInterval,
	}
}

func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("invalid server.addr: empty")
	}
	if c.Server.UploadDir == "" {
		return fmt.Errorf("invalid server.upload_dir: empty")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid server.max_upload_mb: %d", c.Server.MaxUploadMB)
	}

	switch c.Transcription.Provider {
	case "openai":
		if c.Transcription.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (transcription.api_key) or environment variable (OPENAI_API_KEY)")
		}
	case "whisper.cpp":
		if c.Transcription.ModelPath == "" && !whisper.IsInstalled(c.Transcription.Model) {
			return fmt.Errorf("whisper.cpp model unavailable: set transcription.model_path or download %q with \"recmeet model download\"", c.Transcription.Model)
		}
	default:
		return fmt.Errorf("invalid transcription.provider: %s (must be openai or whisper.cpp)", c.Transcription.Provider)
	}
	if !language.IsSupported(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (empty means auto-detect)", c.Transcription.Language)
	}
	if c.Transcription.MaxChunkSeconds <= 0 {
		return fmt.Errorf("invalid transcription.max_chunk_seconds: %v", c.Transcription.MaxChunkSeconds)
	}

	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("invalid storage.bucket: empty (required for gcs)")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("invalid storage.local_dir: empty (required for local)")
		}
	default:
		return fmt.Errorf("invalid storage.backend: %s (must be gcs or local)", c.Storage.Backend)
	}
	if c.Storage.VerifyAttempts <= 0 {
		return fmt.Errorf("invalid storage.verify_attempts: %d", c.Storage.VerifyAttempts)
	}
	if c.Storage.VerifyInterval < 0 {
		return fmt.Errorf("invalid storage.verify_interval: %v", c.Storage.VerifyInterval)
	}

	switch c.Queue.Backend {
	case "cloudtasks":
		if c.Queue.Project == "" || c.Queue.Location == "" || c.Queue.Queue == "" || c.Queue.TargetURL == "" {
			return fmt.Errorf("queue.project, queue.location, queue.queue and queue.target_url are required for cloudtasks")
		}
	case "memory":
		if c.Queue.Workers <= 0 {
			return fmt.Errorf("invalid queue.workers: %d", c.Queue.Workers)
		}
	default:
		return fmt.Errorf("invalid queue.backend: %s (must be cloudtasks or memory)", c.Queue.Backend)
	}

	if c.Notifications.Enabled && c.Notifications.FirebaseProject == "" {
		return fmt.Errorf("invalid notifications.firebase_project: empty (required when notifications are enabled)")
	}

	return nil
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	recmeetDir := filepath.Join(configDir, "recmeet")
	if err := os.MkdirAll(recmeetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(recmeetDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Info().Str("path", configPath).Msg("no config file found, creating with defaults")
		if err := SaveDefaultConfig(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return LoadFrom(configPath)
}

func LoadFrom(configPath string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return &config, nil
}
