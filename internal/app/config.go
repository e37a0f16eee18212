package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/vk/lasrgo/internal/pipeline"
)

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Config holds everything a run needs. File values come from an optional
// YAML file; the command line overrides them.
type Config struct {
	PipelinePath string   `yaml:"-" validate:"required"`
	Inputs       []string `yaml:"-"`

	// Exactly one engine transport is configured.
	EngineBin       string `yaml:"engine_bin" validate:"required_without=EngineURL,excluded_with=EngineURL"`
	EngineURL       string `yaml:"engine_url" validate:"omitempty,url"`
	EngineNamespace string `yaml:"engine_namespace"`

	Strategy string `yaml:"strategy" validate:"omitempty,oneof=sequential concurrent-points concurrent-files nested"`
	NCores   []int  `yaml:"ncores" validate:"max=2,dive,gt=0"`

	// OutputDir receives the .las written in process mode; ConfigDir keeps
	// the engine documents. Both default to the temporary directory.
	OutputDir string `yaml:"output_dir"`
	ConfigDir string `yaml:"config_dir"`

	LogFormat       string `yaml:"log_format" validate:"oneof=text json"`
	LogLevel        string `yaml:"log_level" validate:"oneof=debug info warn error"`
	HealthcheckPort int    `yaml:"healthcheck_port" validate:"gte=0,lte=65535"`
}

// NewConfig fills defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := configValidate.Struct(&cfg); err != nil {
		return nil, lasrerr.InvalidArgument("invalid configuration: %s", describeValidation(err))
	}
	if pipeline.Strategy(cfg.Strategy) == pipeline.Nested && len(cfg.NCores) != 2 {
		return nil, lasrerr.InvalidArgument("invalid configuration: the nested strategy needs two ncores values, got %d", len(cfg.NCores))
	}
	return &cfg, nil
}

// describeValidation turns validator errors into one line per field using
// the yaml names users write.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldNames[fe.StructField()]
		if field == "" {
			field = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "required_without":
			parts = append(parts, "one of engine_bin or engine_url is required")
		case "excluded_with":
			parts = append(parts, "engine_bin and engine_url are mutually exclusive")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %q (%v)", field, fe.Tag(), fe.Value()))
		}
	}
	return strings.Join(parts, "; ")
}

var fieldNames = map[string]string{
	"PipelinePath":    "pipeline",
	"EngineBin":       "engine_bin",
	"EngineURL":       "engine_url",
	"Strategy":        "strategy",
	"NCores":          "ncores",
	"LogFormat":       "log_format",
	"LogLevel":        "log_level",
	"HealthcheckPort": "healthcheck_port",
}

// LoadConfigFile reads the YAML file at path. Unknown keys are rejected.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, lasrerr.PathNotFound(path, nil)
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, lasrerr.InvalidArgument("parse config %s: %v", path, err)
	}
	return cfg, nil
}
