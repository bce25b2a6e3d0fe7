package config

import "fmt"

// StoreConfig holds connection settings for test-run history
type StoreConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Type     string `mapstructure:"type" yaml:"type"` // postgres, mysql or sqlserver
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" yaml:"database"`
	SSLMode  string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// Validate checks the store section when history is enabled.
func (c StoreConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Type {
	case "postgres", "mysql", "sqlserver":
	default:
		return fmt.Errorf("unsupported store.type %q", c.Type)
	}
	if c.Host == "" || c.Database == "" {
		return fmt.Errorf("store.host and store.database are required when store is enabled")
	}
	return nil
}
