// Package results writes finished runs to disk.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spigell/recruiter-agency/internal/profile"
	"github.com/spigell/recruiter-agency/internal/workflow"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for formats other than json and yaml.
var ErrUnknownFormat = errors.New("unknown results format")

// Report is what gets persisted for a run.
type Report struct {
	Run     *workflow.Context       `json:"run" yaml:"run"`
	Summary *profile.ProfileSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// ParseFormat accepts json, yaml and yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Save writes the report into dir, named after the run ID. An empty dir
// means a temporary file.
func Save(dir string, format Format, report Report) (string, error) {
	if format != FormatJSON && format != FormatYAML {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	id := uuid.NewString()
	if report.Run != nil && report.Run.ID != "" {
		id = report.Run.ID
	}

	var (
		file *os.File
		err  error
	)
	if dir == "" {
		file, err = os.CreateTemp("", fmt.Sprintf("recruiter_%s_*.%s", id, format))
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		file, err = os.OpenFile(filepath.Join(dir, fmt.Sprintf("%s.%s", id, format)), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := Encode(file, format, report); err != nil {
		return "", err
	}

	return file.Name(), nil
}

// Encode writes v in the given format.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
