package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ledgerstore/ledgerstore/pkg/log"
)

const (
	envThrottleInterval = "SUBSCRIPTION_THROTTLE_INTERVAL"
	envDataDir          = "LEDGERSTORE_DATA_DIR"
	envLogLevel         = "LEDGERSTORE_LOG_LEVEL"
	envLogJSON          = "LEDGERSTORE_LOG_JSON"

	defaultThrottleIntervalMS = 1000
	defaultDataDir            = "./ledgerstore-data"
	defaultLogLevel           = log.InfoLevel
)

// Config holds the daemon's environment-derived settings.
type Config struct {
	// ThrottleInterval is the minimum spacing between subscription
	// events a Throttler emits while its deployment is not yet synced.
	ThrottleInterval time.Duration
	DataDir          string
	LogLevel         log.Level
	LogJSON          bool
}

// Load reads Config from the environment, applying defaults for
// unset variables. A present-but-malformed SUBSCRIPTION_THROTTLE_INTERVAL
// is a fatal configuration error: startup must abort rather than run
// with a guessed throttle interval.
func Load() (Config, error) {
	cfg := Config{
		ThrottleInterval: defaultThrottleIntervalMS * time.Millisecond,
		DataDir:          defaultDataDir,
		LogLevel:         defaultLogLevel,
	}

	if raw, ok := os.LookupEnv(envThrottleInterval); ok {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("config: %s must be a positive integer number of milliseconds, got %q", envThrottleInterval, raw)
		}
		cfg.ThrottleInterval = time.Duration(ms) * time.Millisecond
	}

	if raw, ok := os.LookupEnv(envDataDir); ok && raw != "" {
		cfg.DataDir = raw
	}

	if raw, ok := os.LookupEnv(envLogLevel); ok && raw != "" {
		switch log.Level(raw) {
		case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
			cfg.LogLevel = log.Level(raw)
		default:
			return Config{}, fmt.Errorf("config: %s must be one of debug, info, warn, error, got %q", envLogLevel, raw)
		}
	}

	if raw, ok := os.LookupEnv(envLogJSON); ok && raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s must be a boolean, got %q", envLogJSON, raw)
		}
		cfg.LogJSON = b
	}

	return cfg, nil
}

// ApplyFlagOverrides lets cobra persistent flags take precedence over
// the environment.
func (c Config) ApplyFlagOverrides(logLevel string, logJSON bool, logJSONSet bool, dataDir string, dataDirSet bool) Config {
	if logLevel != "" {
		c.LogLevel = log.Level(logLevel)
	}
	if logJSONSet {
		c.LogJSON = logJSON
	}
	if dataDirSet && dataDir != "" {
		c.DataDir = dataDir
	}
	return c
}
