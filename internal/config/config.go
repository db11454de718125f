package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ClientConfig holds everything the client needs to talk to an LMS backend.
type ClientConfig struct {
	Environment     string        `mapstructure:"environment"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CredentialsFile string        `mapstructure:"credentials_file"`
}

// Load reads configuration from an optional config file
// (~/.config/lms/config.yaml or ./config.yaml) with LMS_* environment
// variables taking precedence. Missing files fall back to defaults.
func Load() (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "lms"))
	}

	v.SetEnvPrefix("LMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("base_url", "http://localhost:8000/api")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("credentials_file", defaultCredentialsFile())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "[config.Load] read config file")
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] unmarshal config")
	}
	return &cfg, nil
}

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lms-credentials.json"
	}
	return filepath.Join(dir, "lms", "credentials.json")
}
