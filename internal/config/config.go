// Package config resolves rxtrend settings from, in precedence order:
// command-line flags, RXTREND_* environment variables, a .rxtrend.yaml
// config file, and built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved configuration.
type Config struct {
	DB     string       `mapstructure:"db"`
	Output OutputConfig `mapstructure:"output"`
	Trends TrendsConfig `mapstructure:"trends"`
	Seed   SeedConfig   `mapstructure:"seed"`
	Viewer ViewerConfig `mapstructure:"viewer"`
}

// OutputConfig controls artifact and terminal output.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// TrendsConfig holds aggregation defaults.
type TrendsConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// SeedConfig holds synthetic cohort defaults.
type SeedConfig struct {
	Value    int64 `mapstructure:"value"`
	Patients int   `mapstructure:"patients"`
	Days     int   `mapstructure:"days"`
}

// ViewerConfig holds artifact viewer defaults.
type ViewerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load resolves configuration. cfgFile overrides the search path; when
// empty, .rxtrend.yaml is looked up in the working directory and $HOME.
// A missing config file is fine - defaults and env still apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".rxtrend")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("RXTREND")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicitly named file must exist and parse
			if cfgFile != "" {
				return nil, fmt.Errorf("reading config %s: %w", cfgFile, err)
			}
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "rxtrend.db")
	v.SetDefault("output.dir", "./artifacts")
	v.SetDefault("output.format", "text")
	v.SetDefault("trends.window", "168h")
	v.SetDefault("seed.value", 42)
	v.SetDefault("seed.patients", 500)
	v.SetDefault("seed.days", 30)
	v.SetDefault("viewer.addr", ":8321")
}
