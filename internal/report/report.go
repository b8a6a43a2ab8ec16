// Package report writes finished company profiles to disk.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/atlas/internal/model"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXLSX = "xlsx"
)

// DefaultFormats is used when a Writer has no formats configured.
var DefaultFormats = []string{FormatJSON}

// Writer renders profiles into Dir in each of Formats.
type Writer struct {
	Dir     string
	Formats []string
}

// NewWriter creates a Writer. Unknown formats are rejected.
func NewWriter(dir string, formats []string) (*Writer, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatJSON, FormatYAML, FormatXLSX:
			out = append(out, f)
		case "yml":
			out = append(out, FormatYAML)
		default:
			return nil, eris.Errorf("report: unknown format %q", f)
		}
	}
	return &Writer{Dir: dir, Formats: out}, nil
}

// Write renders p in every configured format and returns the written paths.
func (w *Writer) Write(p *model.CompanyProfile) ([]string, error) {
	if p == nil {
		return nil, eris.New("report: nil profile")
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create dir %s", w.Dir)
	}

	var paths []string
	for _, f := range w.Formats {
		var (
			path string
			err  error
		)
		switch f {
		case FormatJSON:
			path = filepath.Join(w.Dir, FileName(p.Name, "profile", "json"))
			err = WriteJSON(path, p)
		case FormatYAML:
			path = filepath.Join(w.Dir, FileName(p.Name, "profile", "yaml"))
			err = WriteYAML(path, p)
		case FormatXLSX:
			path = filepath.Join(w.Dir, FileName(p.Name, "dossier", "xlsx"))
			err = WriteXLSX(path, p)
		}
		if err != nil {
			return paths, err
		}
		zap.L().Info("report: saved", zap.String("company", p.Name), zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName builds "{name}_{kind}.{ext}" with spaces turned into underscores
// and path separators removed.
func FileName(name, kind, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "company"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', ':', 0:
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "company"
	}
	return name + "_" + kind + "." + ext
}

// WriteJSON writes p as indented JSON.
func WriteJSON(path string, p *model.CompanyProfile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// WriteYAML writes p as YAML.
func WriteYAML(path string, p *model.CompanyProfile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "report: marshal yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
