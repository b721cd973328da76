// Package config layers CLI flags over a project config file, a user config
// file, environment variables, and defaults into a single AppConfig, then
// resolves it down to the core's sole entry point, *types.ScanRequest.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/user/dupeseer/internal/types"
)

// AppConfig is everything the CLI needs beyond a bare ScanRequest: cache
// sizing and logging/progress toggles that the core itself doesn't care
// about.
type AppConfig struct {
	Paths           []string `mapstructure:"paths"`
	Algorithm       string   `mapstructure:"algorithm"`
	Threshold       int      `mapstructure:"threshold"`
	IncludeHidden   bool     `mapstructure:"include_hidden"`
	Workers         int      `mapstructure:"workers"`
	DeadlineMS      int64    `mapstructure:"deadline_ms"`
	CacheDirectory  string   `mapstructure:"cache_directory"`
	CacheByteBudget int64    `mapstructure:"cache_byte_budget"`
	Verbose         bool     `mapstructure:"verbose"`
	NoProgress      bool     `mapstructure:"no_progress"`
}

// Loader loads layered configuration. Precedence, highest to lowest: CLI
// flags > environment (DUPESEER_* / .env) > project config
// (./.dupeseer.yaml) > global config (~/.dupeseer.yaml) > defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a Loader with defaults and the DUPESEER_ environment
// namespace wired in, and loads a .env file from the working directory if
// present.
func NewLoader() *Loader {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("DUPESEER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("algorithm", "difference")
	v.SetDefault("threshold", types.DefaultThreshold)
	v.SetDefault("include_hidden", false)
	v.SetDefault("workers", 0)
	v.SetDefault("deadline_ms", 0)
	v.SetDefault("cache_directory", defaultCacheDirectory())
	v.SetDefault("cache_byte_budget", int64(64<<20))
	v.SetDefault("verbose", false)
	v.SetDefault("no_progress", false)

	return &Loader{v: v}
}

// Load resolves every layer into an AppConfig. cliOverrides carries only
// the flags the user actually set on the command line (a flag left at its
// zero value must not shadow a config-file or environment setting).
func (l *Loader) Load(cliOverrides map[string]any) (*AppConfig, error) {
	if err := l.loadGlobalConfig(); err != nil {
		return nil, err
	}
	if err := l.loadProjectConfig("."); err != nil {
		return nil, err
	}
	for key, value := range cliOverrides {
		if value != nil {
			l.v.Set(key, value)
		}
	}

	cfg := &AppConfig{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, &types.ScanError{Kind: types.KindConfig, Detail: "failed to decode configuration", Cause: err}
	}
	return cfg, nil
}

func (l *Loader) loadGlobalConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".dupeseer.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return &types.ScanError{Kind: types.KindConfig, Detail: "failed to read " + path, Cause: err}
	}
	return nil
}

func (l *Loader) loadProjectConfig(dir string) error {
	path := filepath.Join(dir, ".dupeseer.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.MergeInConfig(); err != nil {
		return &types.ScanError{Kind: types.KindConfig, Detail: "failed to read " + path, Cause: err}
	}
	return nil
}

func defaultCacheDirectory() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dupeseer")
}

// ToScanRequest resolves an AppConfig into the core's ScanRequest. The
// algorithm string is parsed with types.ParseAlgorithm so an invalid value
// surfaces as the same ConfigError the core itself would raise.
func (c *AppConfig) ToScanRequest() (*types.ScanRequest, error) {
	alg, err := types.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return nil, &types.ScanError{Kind: types.KindConfig, Detail: "invalid algorithm " + strconv.Quote(c.Algorithm), Cause: err}
	}
	return &types.ScanRequest{
		Paths:          c.Paths,
		Algorithm:      alg,
		Threshold:      c.Threshold,
		IncludeHidden:  c.IncludeHidden,
		WorkerCount:    c.Workers,
		DeadlineMS:     c.DeadlineMS,
		CacheDirectory: c.CacheDirectory,
	}, nil
}
