package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Source provides duration probing and lossless range extraction for a
// recorded audio file. Extraction never loads the full recording into
// memory.
type Source interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractRange(ctx context.Context, path string, start, end float64) (string, error)
}

// FFmpeg implements Source by shelling out to ffprobe and ffmpeg.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	tempDir     string
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		tempDir:     os.TempDir(),
	}
}

// ProbeDuration returns the recording length in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := runCommand(ctx, f.ffprobePath, probeArgs(path))
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	seconds, err := parseDuration(out)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return seconds, nil
}

// ExtractRange writes the [start, end) slice of the recording to a
// standalone mono 16kHz WAV segment. The caller removes the returned file.
func (f *FFmpeg) ExtractRange(ctx context.Context, path string, start, end float64) (string, error) {
	out := filepath.Join(f.tempDir, fmt.Sprintf("recmeet-segment-%s.wav", uuid.NewString()))

	if _, err := runCommand(ctx, f.ffmpegPath, extractArgs(path, start, end, out)); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg extract [%.3f, %.3f) from %s: %w", start, end, path, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("ffmpeg completed but segment is missing: %w", err)
	}

	log.Debug().Str("source", path).Float64("start", start).Float64("end", end).Str("segment", out).Msg("extracted audio segment")
	return out, nil
}

func runCommand(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func parseDuration(raw string) (float64, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected duration output %q: %w", strings.TrimSpace(raw), err)
	}
	return seconds, nil
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// extractArgs seeks before decoding (-ss ahead of -i) so extraction cost
// does not grow with chunk position.
func extractArgs(path string, start, end float64, out string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		out,
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
