package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "wsh.yaml"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

type Configuration struct {
	configFs afero.Fs
	// Directory holding the configuration, relative paths are resolved
	// against it.
	configurationDir string

	Prompt     string   `json:"prompt" validate:"required"`
	SearchPath []string `json:"search_path" validate:"required,min=1,dive,required"`
	MaxJobs    int      `json:"max_jobs" validate:"gte=1,lte=4096"`
	Color      string   `json:"color" validate:"oneof=always auto never"`
	LogLevel   string   `json:"log_level" validate:"oneof=trace debug info warn error"`
	LogFile    string   `json:"log_file"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewOsFs()
	}
	return c.configFs
}

func (c *Configuration) resolve(name string) string {
	if filepath.IsAbs(name) || c.configurationDir == "" {
		return name
	}
	return filepath.Join(c.configurationDir, name)
}

// HasAppLog is true if an application log file is configured.
func (c *Configuration) HasAppLog() bool {
	return c.LogFile != ""
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(c.resolve(c.LogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// Default returns the built-in configuration backed by the OS filesystem.
func Default() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewOsFs()
	return out
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
