package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	// If given the path to a wsh.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(fs, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}

	// Start from the defaults so omitted keys keep their built-in values.
	out := defaultConfig()
	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}
	out.configFs = fs
	out.configurationDir = path
	return out, nil
}

// Initialize writes the default configuration into dir.
func Initialize(fs afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch exists, err := afero.Exists(fs, configPath); {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("Config already exists: %s\n", configPath)
	default:
		logger.Printf("Writing config: %s\n", configPath)
		if err := afero.WriteFile(fs, configPath, defaultConfigData, 0644); err != nil {
			return nil, err
		}
	}

	return Load(fs, dir)
}
