package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fusion_costing/pkg/core/utils"
	"fusion_costing/pkg/models"

	"gopkg.in/yaml.v2"
)

// Format is the encoding of a scenario document.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatHJSON Format = "hjson"
	FormatJSON  Format = "json"
)

// FormatFor picks the decoder from a file extension. Unknown extensions are
// treated as JSON, which the lenient parser also accepts as HJSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hjson":
		return FormatHJSON
	}
	return FormatJSON
}

// Parse decodes one scenario document.
func Parse(data []byte, format Format) (Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %v: %w", err, models.ErrConfiguration)
		}
	case FormatHJSON:
		if err := utils.ParseHJSONToStruct(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse hjson: %v: %w", err, models.ErrConfiguration)
		}
	default:
		if _, err := utils.SmartParse(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse json: %v: %w", err, models.ErrConfiguration)
		}
	}
	return cfg, nil
}

// Load reads a scenario file, choosing the decoder by extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	cfg, err := Parse(data, FormatFor(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return cfg, nil
}
