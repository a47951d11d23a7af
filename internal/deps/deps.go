// Package deps reports whether the external programs blurry drives are
// installed.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"blurry/internal/config"
)

// Requirement defines an external dependency blurry relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the binary to read a version line.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// Requirements lists the binaries the configured execution mode needs.
func Requirements(cfg *config.Config) []Requirement {
	inProcess := cfg.InProcess()
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpeg,
			Description: "Decodes source frames and encodes redacted output",
			Optional:    !inProcess,
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobe,
			Description: "Reads stream geometry, frame rate and bit rate",
			Optional:    !inProcess,
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "Face detector",
			Command:     cfg.Detector.Command,
			Description: "Locates faces in each frame",
			Optional:    !inProcess,
		},
	}
	if !inProcess {
		reqs = append(reqs, Requirement{
			Name:        "Redaction command",
			Command:     cfg.Execution.Command,
			Description: "Redacts a whole video in subprocess mode",
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		if len(req.VersionArgs) > 0 {
			status.Version = Version(path, req.VersionArgs...)
		}
		results = append(results, status)
	}
	return results
}

// CheckModel reports whether the configured detection model file exists.
// An empty path means the detector uses its built-in model.
func CheckModel(path string) Status {
	status := Status{
		Name:        "Detection model",
		Command:     path,
		Description: "Weights passed to the detector with --model",
		Optional:    true,
	}
	path = strings.TrimSpace(path)
	if path == "" {
		status.Available = true
		status.Detail = "detector default"
		return status
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		status.Detail = fmt.Sprintf("model file %q not found", path)
	case info.IsDir():
		status.Detail = fmt.Sprintf("model path %q is a directory", path)
	default:
		status.Path = path
		status.Available = true
	}
	return status
}

// MissingRequired returns the required dependencies that are unavailable.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
