package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the config file base name searched for.
	AppName = "sfs"

	// EnvPrefix is the prefix for environment variables, e.g. SFS_IMAGE.
	EnvPrefix = "SFS"
)

type Config struct {
	Image      string `mapstructure:"image"`
	Debug      bool   `mapstructure:"debug"`
	DebugLevel uint64 `mapstructure:"debug_level"`
	LogFormat  string `mapstructure:"log_format"`
	LogFile    string `mapstructure:"log_file"`

	// Defaults for mkfs
	Volume struct {
		Name   string `mapstructure:"name"`
		Blocks uint64 `mapstructure:"blocks"`
	} `mapstructure:"volume"`
}

// New returns a viper instance with defaults and environment binding set
// up. Callers may bind command-line flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("image", "")
	v.SetDefault("debug", false)
	v.SetDefault("debug_level", 0)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")
	v.SetDefault("volume.name", "sfs")
	v.SetDefault("volume.blocks", 1024)
}

// Load reads cfgFile, or sfs.yaml from the working directory or
// $HOME/.config/sfs when cfgFile is empty, and decodes the result. A
// missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sfs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "human" {
		return nil, fmt.Errorf("log_format %q: must be json or human", cfg.LogFormat)
	}
	return cfg, nil
}
