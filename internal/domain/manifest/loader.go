package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a manifest from the given path. The format is chosen by
// extension: .yaml/.yml or .toml. Defaults are applied and the result
// is validated before being returned.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &UserError{
				Message:    fmt.Sprintf("manifest not found: %s", path),
				Suggestion: "pass --manifest with the path to your hostwright.yaml",
				Underlying: err,
			}
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Parse decodes manifest bytes in the format indicated by ext.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest

	switch strings.ToLower(ext) {
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, &UserError{
				Message:    "manifest is not valid YAML",
				Suggestion: "check indentation and key names",
				Underlying: err,
			}
		}
	case ".toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, &UserError{
				Message:    "manifest is not valid TOML",
				Suggestion: "check table and key names",
				Underlying: err,
			}
		}
	default:
		return nil, &UserError{
			Message:    fmt.Sprintf("unsupported manifest format %q", ext),
			Suggestion: "use a .yaml or .toml manifest",
		}
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}
