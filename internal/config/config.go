// internal/config/config.go
//
// Run configuration for the megaverse CLI and its simulator.
// Sources, lowest precedence first:
//   - built-in defaults (setViperDefaults);
//   - a local `.env` (CANDIDATE_ID, API_URL, LOG_LEVEL, LOG_FORMAT);
//   - megaverse.yaml (or the file passed with --config);
//   - MEGAVERSE_* environment variables.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/robalobadob/megaverse/internal/megaverse"
)

// DefaultAPIURL is the public challenge API.
const DefaultAPIURL = "https://challenge.crossmint.io/api"

// Config holds everything a placement run needs.
type Config struct {
	CandidateID string                `mapstructure:"candidate_id"`
	APIURL      string                `mapstructure:"api_url"`
	MaxRetries  int                   `mapstructure:"max_retries"`
	Positions   []megaverse.Placement `mapstructure:"positions"`
	Shape       string                `mapstructure:"shape"`
	GridSize    int                   `mapstructure:"grid_size"`
	Margin      int                   `mapstructure:"margin"`
	Pace        time.Duration         `mapstructure:"pace"`
	Timeout     time.Duration         `mapstructure:"timeout"`
	LogLevel    string                `mapstructure:"log_level"`
	LogFormat   string                `mapstructure:"log_format"`
	Simulator   SimulatorConfig       `mapstructure:"simulator"`
}

// SimulatorConfig holds settings for `megaverse serve`.
type SimulatorConfig struct {
	Addr           string  `mapstructure:"addr"`
	DB             string  `mapstructure:"db"`
	GoalFile       string  `mapstructure:"goal_file"`
	FailFirst      int     `mapstructure:"fail_first"`
	FailAfterApply int     `mapstructure:"fail_after_apply"`
	RateLimit      float64 `mapstructure:"rate_limit"`
}

// setViperDefaults sets all default values using Viper's SetDefault.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("max_retries", 3)
	v.SetDefault("positions", []map[string]int{})
	v.SetDefault("shape", "")
	v.SetDefault("grid_size", 11)
	v.SetDefault("margin", 2)
	v.SetDefault("pace", 0)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("simulator.addr", ":8089")
	v.SetDefault("simulator.db", "")
	v.SetDefault("simulator.goal_file", "")
	v.SetDefault("simulator.fail_first", 0)
	v.SetDefault("simulator.fail_after_apply", 0)
	v.SetDefault("simulator.rate_limit", 0)
}

// Load builds a Config from defaults, an optional .env file, an optional
// config file and the environment (MEGAVERSE_* plus the bare CANDIDATE_ID,
// API_URL and LOG_LEVEL the challenge's .env uses). An explicit configPath
// that cannot be read is an error; a missing default config is not.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setViperDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("megaverse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("MEGAVERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("candidate_id", "MEGAVERSE_CANDIDATE_ID", "CANDIDATE_ID")
	_ = v.BindEnv("api_url", "MEGAVERSE_API_URL", "API_URL")
	_ = v.BindEnv("log_level", "MEGAVERSE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "MEGAVERSE_LOG_FORMAT", "LOG_FORMAT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return cfg, nil
}

// Validate checks the values a placement run depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CandidateID) == "" {
		return errors.New("candidate_id is required (set CANDIDATE_ID)")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q must be an absolute URL", c.APIURL)
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	for i, p := range c.Positions {
		if p.Row < 0 || p.Column < 0 {
			return fmt.Errorf("positions[%d] %s: row and column must be non-negative", i, p)
		}
	}
	switch strings.ToLower(c.Shape) {
	case "":
	case "x":
		if c.GridSize <= 0 {
			return errors.New("grid_size must be positive")
		}
		if c.Margin < 0 {
			return errors.New("margin must be non-negative")
		}
	default:
		return fmt.Errorf("shape %q: must be empty or \"x\"", c.Shape)
	}
	if c.Pace < 0 {
		return errors.New("pace must be non-negative")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	return nil
}

// Placements returns the explicit positions followed by the shape's cells,
// in order. Duplicates are kept.
func (c *Config) Placements() []megaverse.Placement {
	out := append([]megaverse.Placement(nil), c.Positions...)
	if strings.EqualFold(c.Shape, "x") {
		out = append(out, megaverse.XShape(c.GridSize, c.Margin)...)
	}
	return out
}

// Objects returns Placements as Polyanets.
func (c *Config) Objects() []megaverse.Object {
	ps := c.Placements()
	out := make([]megaverse.Object, 0, len(ps))
	for _, p := range ps {
		out = append(out, megaverse.Polyanet(p.Row, p.Column))
	}
	return out
}
