package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/source"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X github.com/edgeflare/postemu/pkg/config.Version=..."
var Version = "dev"

// EnvPrefix prefixes environment overrides, eg POSTEMU_SOURCE_PASSWORD.
const EnvPrefix = "POSTEMU"

// Config holds application-wide configuration
type Config struct {
	Source   source.Config         `mapstructure:"source"`
	Sampler  source.SamplerOptions `mapstructure:"sampler"`
	Emulator EmulatorConfig        `mapstructure:"emulator"`
	Metrics  MetricsConfig         `mapstructure:"metrics"`
	Pipeline pipeline.Config       `mapstructure:"pipeline"`
	// File is the config file that was read, empty when none was found
	File string `mapstructure:"-"`
}

type EmulatorConfig struct {
	// Iterations bounds the loop; zero runs forever.
	Iterations int `mapstructure:"iterations"`
}

type MetricsConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

// defaults registers every scalar key so env overrides apply to them.
func defaults(v *viper.Viper) {
	v.SetDefault("source.driver", source.DriverMySQL)
	v.SetDefault("source.host", "localhost")
	v.SetDefault("source.port", 0)
	v.SetDefault("source.user", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.database", "")
	v.SetDefault("source.tables.pin", source.DefaultPinTable)
	v.SetDefault("source.tables.geo", source.DefaultGeoTable)
	v.SetDefault("source.tables.user", source.DefaultUserTable)

	v.SetDefault("sampler.seed", source.DefaultSeed)
	v.SetDefault("sampler.maxOffset", source.DefaultMaxOffset)
	v.SetDefault("sampler.maxSleep", source.DefaultMaxSleep)

	v.SetDefault("emulator.iterations", 0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("postemu")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that can be checked without connecting.
func (c *Config) Validate() error {
	if _, err := source.DialectFor(c.Source.WithDefaults().Driver); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	if c.Emulator.Iterations < 0 {
		return fmt.Errorf("invalid emulator.iterations %d", c.Emulator.Iterations)
	}

	seen := make(map[string]bool, len(c.Pipeline.Peers))
	for i, p := range c.Pipeline.Peers {
		if p.Name == "" {
			return fmt.Errorf("pipeline.peers[%d]: name is required", i)
		}
		if p.ConnectorName == "" {
			return fmt.Errorf("peer %s: connector is required", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("peer %s is defined more than once", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
