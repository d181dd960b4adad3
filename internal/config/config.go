// Package config resolves sweep settings from the environment (optionally seeded
// from a .env file) and the single positional argument.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/haricheung/catperiod/internal/batch"
	"github.com/haricheung/catperiod/internal/catmap"
)

// Env var names. Each has a default applied when unset or empty.
const (
	EnvLow      = "CATPERIOD_LOW"
	EnvMaxN     = "CATPERIOD_MAX_N"
	EnvWorkers  = "CATPERIOD_WORKERS"
	EnvPolicy   = "CATPERIOD_POLICY"
	EnvStrategy = "CATPERIOD_STRATEGY"
	EnvMaxIter  = "CATPERIOD_MAX_ITER"
	EnvOutDir   = "CATPERIOD_OUT_DIR"
	EnvCacheDir = "CATPERIOD_CACHE_DIR"
	EnvSQLite   = "CATPERIOD_SQLITE"
	EnvLogDir   = "CATPERIOD_LOG_DIR"
	EnvQuiet    = "CATPERIOD_QUIET"
)

// DefaultMaxN is the sweep's upper bound when neither the argument nor the env sets one.
const DefaultMaxN = 100

// Config is the resolved run configuration.
type Config struct {
	Low      int
	MaxN     int
	Workers  int
	Policy   batch.Policy
	Strategy catmap.Strategy
	MaxIter  int
	OutDir   string
	CacheDir string // empty disables the period cache
	SQLite   string // empty disables the SQLite export
	LogDir   string // empty disables the run log
	Quiet    bool
}

// LoadDotEnv seeds the environment from path. A missing file is not an error;
// variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Load resolves the configuration from the environment and args (os.Args[1:]).
// args[0], when present, overrides CATPERIOD_MAX_N.
//
// Expectations:
//   - Defaults: Low=2, MaxN=100, Workers=0 (NumCPU), failfast, reduced, OutDir="."
//   - CacheDir/LogDir default under the user cache dir; set them to "off" to disable
//   - Rejects non-integer numbers, unknown policy/strategy, Low < 2 and MaxN < Low
func Load(args []string) (Config, error) {
	cacheRoot := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cacheRoot = filepath.Join(dir, "catperiod")
	}

	cfg := Config{OutDir: ".", SQLite: os.Getenv(EnvSQLite)}
	var err error
	if cfg.Low, err = intEnv(EnvLow, 2); err != nil {
		return Config{}, err
	}
	if cfg.MaxN, err = intEnv(EnvMaxN, DefaultMaxN); err != nil {
		return Config{}, err
	}
	if len(args) > 0 && args[0] != "" {
		if cfg.MaxN, err = strconv.Atoi(args[0]); err != nil {
			return Config{}, fmt.Errorf("max N %q: not an integer", args[0])
		}
	}
	if cfg.Workers, err = intEnv(EnvWorkers, 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxIter, err = intEnv(EnvMaxIter, 0); err != nil {
		return Config{}, err
	}
	if cfg.Policy, err = batch.ParsePolicy(os.Getenv(EnvPolicy)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvPolicy, err)
	}
	if cfg.Strategy, err = catmap.ParseStrategy(os.Getenv(EnvStrategy)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvStrategy, err)
	}
	if v := os.Getenv(EnvOutDir); v != "" {
		cfg.OutDir = v
	}
	cfg.CacheDir = dirEnv(EnvCacheDir, cacheRoot, "periods")
	cfg.LogDir = dirEnv(EnvLogDir, cacheRoot, "runs")
	cfg.Quiet = os.Getenv(EnvQuiet) == "true"

	if cfg.Low < 2 {
		return Config{}, fmt.Errorf("%s=%d: must be at least 2", EnvLow, cfg.Low)
	}
	if cfg.MaxN < cfg.Low {
		return Config{}, fmt.Errorf("max N %d is below low %d", cfg.MaxN, cfg.Low)
	}
	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: not an integer", key, v)
	}
	return n, nil
}

// dirEnv returns the env value, "" for "off", or root/sub when unset.
func dirEnv(key, root, sub string) string {
	switch v := os.Getenv(key); v {
	case "off":
		return ""
	case "":
		if root == "" {
			return ""
		}
		return filepath.Join(root, sub)
	default:
		return v
	}
}
