package config

import (
	"fmt"
	"os"
	"time"
)

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			UploadDir:   "uploads",
			MaxUploadMB: 100,
			LogLevel:    "info",
		},
		Transcription: TranscriptionConfig{
			Provider:        "openai",
			Model:           "whisper-1",
			MaxChunkSeconds: 60,
		},
		Summarization: SummarizationConfig{
			Model: "gpt-4o",
		},
		Storage: StorageConfig{
			Backend:        "local",
			LocalDir:       "uploads/meetings",
			VerifyAttempts: 5,
			VerifyInterval: 2 * time.Second,
		},
		Queue: QueueConfig{
			Backend: "memory",
			Workers: 2,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
		},
	}
}

func SaveDefaultConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	configContent := `# RecMeet Configuration
# This file is automatically generated with defaults.
# Edit values as needed - changes are applied without a server restart.

# HTTP Server Configuration
[server]
  addr = ":8080"               # Listen address
  upload_dir = "uploads"       # Directory for uploaded recordings
  max_upload_mb = 100          # Maximum upload size in MB
  log_level = "info"           # Log level ("debug", "info", "warn", "error")

# Speech Transcription Configuration
[transcription]
  provider = "openai"          # Transcription backend ("openai", "whisper.cpp")
  api_key = ""                 # OpenAI API key (or set OPENAI_API_KEY environment variable)
  model = "whisper-1"          # OpenAI model name, or a ggml model ID for "whisper.cpp" ("base", "small", ...)
  model_path = ""              # whisper.cpp model file (or download one with "recmeet model download")
  language = ""                # Language code (empty for auto-detect, "en", "pt", "es", etc.)
  threads = 0                  # whisper.cpp CPU threads (0 = auto)
  max_chunk_seconds = 60.0     # Maximum chunk length; bounds per-call memory use

# Summarization Configuration
[summarization]
  api_key = ""                 # OpenAI API key (or set OPENAI_API_KEY environment variable)
  model = "gpt-4o"             # Chat model used for cleanup + structured summary

# Result Storage Configuration
[storage]
  backend = "local"            # "gcs" for Google Cloud Storage, "local" for a directory
  bucket = ""                  # GCS bucket name (required for "gcs")
  local_dir = "uploads/meetings"  # Local result directory (required for "local")
  verify_attempts = 5          # Post-write visibility poll attempts
  verify_interval = "2s"       # Delay between visibility polls

# Task Queue Configuration
[queue]
  backend = "memory"           # "cloudtasks" for Cloud Tasks, "memory" for in-process workers
  project = ""                 # GCP project (required for "cloudtasks")
  location = ""                # Queue location (required for "cloudtasks")
  queue = ""                   # Queue name (required for "cloudtasks")
  target_url = ""              # Worker endpoint the queue delivers to (required for "cloudtasks")
  workers = 2                  # In-process worker count (for "memory")

# Push Notification Configuration
[notifications]
  enabled = false              # Notify subscribers when a meeting record is ready
  firebase_project = ""        # Firebase project for FCM (required when enabled)
`

	if _, err := file.WriteString(configContent); err != nil {
		return fmt.Errorf("failed to write config content: %w", err)
	}

	return nil
}
