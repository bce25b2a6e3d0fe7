package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Tester   TesterConfig   `mapstructure:"tester" yaml:"tester"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// FetchConfig holds outbound HTTP settings for documentation retrieval
type FetchConfig struct {
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	DocumentTimeout   time.Duration `mapstructure:"document_timeout" yaml:"document_timeout"`
	LinkedDocTimeout  time.Duration `mapstructure:"linked_doc_timeout" yaml:"linked_doc_timeout"`
	ValidationTimeout time.Duration `mapstructure:"validation_timeout" yaml:"validation_timeout"`
	LinkedDocRate     float64       `mapstructure:"linked_doc_rate" yaml:"linked_doc_rate"`
	LinkedDocBurst    int           `mapstructure:"linked_doc_burst" yaml:"linked_doc_burst"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	RawContentLimit   int           `mapstructure:"raw_content_limit" yaml:"raw_content_limit"`
}

// TesterConfig holds live endpoint testing settings
type TesterConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxWorkers int           `mapstructure:"max_workers" yaml:"max_workers"`
}

// OutputConfig holds artifact locations
type OutputConfig struct {
	Dir           string   `mapstructure:"dir" yaml:"dir"`
	ReportDir     string   `mapstructure:"report_dir" yaml:"report_dir"`
	ReportFormats []string `mapstructure:"report_formats" yaml:"report_formats"`
	Zip           bool     `mapstructure:"zip" yaml:"zip"`
}

// PipelineConfig bounds a whole documentation run
type PipelineConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dochancer")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)

	// Fetch
	v.SetDefault("fetch.user_agent", "API-Dochancer/1.0")
	v.SetDefault("fetch.document_timeout", "30s")
	v.SetDefault("fetch.linked_doc_timeout", "15s")
	v.SetDefault("fetch.validation_timeout", "10s")
	v.SetDefault("fetch.linked_doc_rate", 5.0)
	v.SetDefault("fetch.linked_doc_burst", 5)
	v.SetDefault("fetch.max_body_bytes", 20<<20)
	v.SetDefault("fetch.raw_content_limit", 10000)

	// Tester
	v.SetDefault("tester.base_url", "")
	v.SetDefault("tester.api_key", "")
	v.SetDefault("tester.timeout", "10s")
	v.SetDefault("tester.max_workers", 10)

	// AI
	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_tokens", 4000)
	v.SetDefault("ai.timeout", "60s")

	// Output
	v.SetDefault("output.dir", "generated")
	v.SetDefault("output.report_dir", "reports")
	v.SetDefault("output.report_formats", []string{"json"})
	v.SetDefault("output.zip", false)

	// Store
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.type", "postgres")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 5432)
	v.SetDefault("store.database", "dochancer")
	v.SetDefault("store.ssl_mode", "disable")

	// Pipeline
	v.SetDefault("pipeline.timeout", "10m")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Secrets commonly live in provider-specific variables
	_ = v.BindEnv("ai.api_key", "DOCHANCER_AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("tester.api_key", "DOCHANCER_TESTER_API_KEY", "AUTH_TOKEN")
	_ = v.BindEnv("store.password", "DOCHANCER_STORE_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration produced by the registered defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Fetch.DocumentTimeout <= 0 {
		errs = append(errs, errors.New("fetch.document_timeout must be positive"))
	}
	if c.Fetch.LinkedDocTimeout <= 0 {
		errs = append(errs, errors.New("fetch.linked_doc_timeout must be positive"))
	}
	if c.Fetch.RawContentLimit <= 0 {
		errs = append(errs, errors.New("fetch.raw_content_limit must be positive"))
	}
	if c.Tester.Timeout <= 0 {
		errs = append(errs, errors.New("tester.timeout must be positive"))
	}
	if c.Tester.MaxWorkers <= 0 {
		errs = append(errs, errors.New("tester.max_workers must be positive"))
	}
	for _, format := range c.Output.ReportFormats {
		if format != "json" && format != "html" {
			errs = append(errs, fmt.Errorf("unsupported report format %q", format))
		}
	}
	if err := c.AI.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Save writes the configuration as YAML to path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
