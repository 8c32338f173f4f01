package whisper

import (
	"os"
	"path/filepath"
)

// ModelInfo describes one downloadable whisper.cpp model.
type ModelInfo struct {
	ID           string // model identifier ("base", "small.en")
	Filename     string // on-disk file name ("ggml-base.bin")
	Size         string // human readable size
	SizeBytes    int64  // expected size for progress reporting
	Multilingual bool
}

// models are the ggml builds published at huggingface.co/ggerganov/whisper.cpp
var models = []ModelInfo{
	{ID: "tiny.en", Filename: "ggml-tiny.en.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: false},
	{ID: "base.en", Filename: "ggml-base.en.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: false},
	{ID: "small.en", Filename: "ggml-small.en.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: false},
	{ID: "medium.en", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: false},

	{ID: "tiny", Filename: "ggml-tiny.bin", Size: "75MB", SizeBytes: 75_000_000, Multilingual: true},
	{ID: "base", Filename: "ggml-base.bin", Size: "142MB", SizeBytes: 142_000_000, Multilingual: true},
	{ID: "small", Filename: "ggml-small.bin", Size: "466MB", SizeBytes: 466_000_000, Multilingual: true},
	{ID: "medium", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_500_000_000, Multilingual: true},
	{ID: "large-v3", Filename: "ggml-large-v3.bin", Size: "3GB", SizeBytes: 3_000_000_000, Multilingual: true},
}

var modelByID = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(models))
	for _, model := range models {
		m[model.ID] = model
	}
	return m
}()

const baseDownloadURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// ModelsDir returns the directory where downloaded models live.
func ModelsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "recmeet", "models", "whisper"), nil
}

// ModelPath returns the full path a model would occupy on disk, or
// empty for an unknown model ID.
func ModelPath(modelID string) string {
	info, ok := modelByID[modelID]
	if !ok {
		return ""
	}
	dir, err := ModelsDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, info.Filename)
}

// DownloadURL returns where a model is fetched from, or empty for an
// unknown model ID.
func DownloadURL(modelID string) string {
	info, ok := modelByID[modelID]
	if !ok {
		return ""
	}
	return baseDownloadURL + "/" + info.Filename
}

// Lookup returns info for a model by ID, nil when unknown.
func Lookup(modelID string) *ModelInfo {
	info, ok := modelByID[modelID]
	if !ok {
		return nil
	}
	return &info
}

// List returns all downloadable models.
func List() []ModelInfo {
	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}
