package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ApplyFile overlays the YAML file at path onto c. Keys missing from the
// file keep their current values. A missing file yields ErrConfigNotFound.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
