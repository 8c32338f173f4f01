package whisper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ProgressFunc receives bytes downloaded so far and the expected total.
type ProgressFunc func(downloaded, total int64)

// IsInstalled reports whether a model is present on disk and non-empty.
func IsInstalled(modelID string) bool {
	path := ModelPath(modelID)
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// ListInstalled returns the IDs of all models present on disk.
func ListInstalled() []string {
	var installed []string
	for _, m := range models {
		if IsInstalled(m.ID) {
			installed = append(installed, m.ID)
		}
	}
	return installed
}

// InstalledPath returns the path to an installed model.
func InstalledPath(modelID string) (string, error) {
	if !IsInstalled(modelID) {
		return "", fmt.Errorf("model not installed: %s", modelID)
	}
	return ModelPath(modelID), nil
}

// progressReader forwards reads and reports the running byte count.
type progressReader struct {
	r          io.Reader
	ctx        context.Context
	downloaded int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(buf)
	if n > 0 {
		p.downloaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.downloaded, p.total)
		}
	}
	return n, err
}

// Download fetches a model into the models directory. The file lands
// under a temporary name and is renamed only after the full body is
// written, so a partial download never shows up as installed.
func Download(ctx context.Context, modelID string, onProgress ProgressFunc) error {
	info := Lookup(modelID)
	if info == nil {
		return fmt.Errorf("unknown model: %s", modelID)
	}

	dir, err := ModelsDir()
	if err != nil {
		return fmt.Errorf("failed to resolve models directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	destPath := ModelPath(modelID)
	tempPath := destPath + ".downloading"

	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		out.Close()
		os.Remove(tempPath)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DownloadURL(modelID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = info.SizeBytes
	}

	src := &progressReader{r: resp.Body, ctx: ctx, total: total, onProgress: onProgress}
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}

// Remove deletes an installed model.
func Remove(modelID string) error {
	if Lookup(modelID) == nil {
		return fmt.Errorf("unknown model: %s", modelID)
	}
	if !IsInstalled(modelID) {
		return fmt.Errorf("model not installed: %s", modelID)
	}
	return os.Remove(ModelPath(modelID))
}
