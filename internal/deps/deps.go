package deps

import (
	"os/exec"
	"strings"
)

// Status describes whether an external binary is available.
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// check probes PATH for a binary and records the first line of its
// version output when the binary responds to versionArg.
func check(binary, versionArg string) Status {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{Installed: true, Path: path}

	output, err := exec.Command(path, versionArg).Output()
	if err == nil {
		if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// CheckFFmpeg reports whether ffmpeg is installed. Required for chunk
// extraction.
func CheckFFmpeg() Status {
	return check("ffmpeg", "-version")
}

// CheckFFprobe reports whether ffprobe is installed. Required for
// duration probing.
func CheckFFprobe() Status {
	return check("ffprobe", "-version")
}

// CheckWhisperCli reports whether whisper-cli is installed. Only needed
// for the whisper.cpp transcription provider.
func CheckWhisperCli() Status {
	return check("whisper-cli", "--version")
}
