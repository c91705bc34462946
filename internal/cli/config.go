package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the mitractl configuration read from ~/.mitractl.yaml, MITRACTL_*
// variables and flags.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Output  OutputConfig  `mapstructure:"output"`
}

// ServerConfig points at the back office API.
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig controls where the access token is kept and how long a
// command waits for the session to settle.
type SessionConfig struct {
	File          string        `mapstructure:"file"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// LoadConfig reads configuration into v. A missing config file is fine.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	home, _ := os.UserHomeDir()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".mitractl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home != "" {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix("MITRACTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.timeout", 15*time.Second)
	v.SetDefault("session.file", filepath.Join(home, ".mitractl", "session"))
	v.SetDefault("session.settle_timeout", 10*time.Second)
	v.SetDefault("output.colors", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Server.URL == "" {
		return nil, errors.New("server.url must be set")
	}
	return &cfg, nil
}
