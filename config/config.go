package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/ini.v1"

	"streamtrace/common"
	"streamtrace/session"
)

// Configuration of one analysis run.
// Values come from an .ini file on top of Default; keys left out of the file
// keep their default.
type Config struct {
	DataRoot      string
	Server        string
	ResDir        string
	Rates         []common.RateCondition
	MaxFiles      int
	Step          string
	Bucket        time.Duration
	CacheTTL      time.Duration
	Workers       int
	ExcludeEvents string
	LogLevel      slog.Level
}

func Default() Config {
	return Config{
		DataRoot:      ".",
		Server:        "dazn",
		ResDir:        "res",
		Rates:         append([]common.RateCondition{}, common.TestbedRates...),
		MaxFiles:      15,
		Step:          "10000",
		Bucket:        time.Second,
		CacheTTL:      10000 * time.Second,
		Workers:       10,
		ExcludeEvents: session.DefaultExclude,
		LogLevel:      slog.LevelInfo,
	}
}

func (c Config) Layout() common.Layout {
	return common.Layout{Root: c.DataRoot, Server: c.Server}
}

// New reads the .ini file at configPath. An empty path gives Default.
func New(configPath string) (Config, error) {
	if len(configPath) == 0 {
		return Default(), nil
	}
	configFile, err := ini.Load(configPath)
	if err != nil {
		return Default(), err
	}
	return fromSection(configFile.Section(""))
}

func fromSection(section *ini.Section) (Config, error) {
	config := Default()
	var err error

	if config.DataRoot, err = getString(section, "data_root", config.DataRoot); err != nil {
		return config, err
	}
	if config.Server, err = getString(section, "server", config.Server); err != nil {
		return config, err
	}
	if config.ResDir, err = getString(section, "res_dir", config.ResDir); err != nil {
		return config, err
	}
	if section.HasKey("rates") {
		rates, err := getString(section, "rates", "")
		if err != nil {
			return config, err
		}
		if config.Rates, err = common.ParseRates(rates); err != nil {
			return config, fmt.Errorf("%s in rates key", err)
		}
	}
	if config.MaxFiles, err = getInt(section, "max_files", config.MaxFiles, 1, 10000); err != nil {
		return config, err
	}
	if config.Step, err = getString(section, "step", config.Step); err != nil {
		return config, err
	}
	bucket, err := getInt(section, "bucket_ms", int(config.Bucket/time.Millisecond), 1, 24*3600*1000)
	if err != nil {
		return config, err
	}
	config.Bucket = time.Duration(bucket) * time.Millisecond
	ttl, err := getInt(section, "cache_ttl_seconds", int(config.CacheTTL/time.Second), 0, 7*24*3600)
	if err != nil {
		return config, err
	}
	config.CacheTTL = time.Duration(ttl) * time.Second
	if config.Workers, err = getInt(section, "workers", config.Workers, 1, 256); err != nil {
		return config, err
	}
	if section.HasKey("exclude_events") {
		// an empty value turns exclusion off
		config.ExcludeEvents = section.Key("exclude_events").String()
	}
	if config.LogLevel, err = getLogLevel(section, "log_level", config.LogLevel); err != nil {
		return config, err
	}
	return config, nil
}

// get a string from the config file, def when the key is absent
func getString(section *ini.Section, keyStr string, def string) (string, error) {
	if !section.HasKey(keyStr) {
		return def, nil
	}
	val := section.Key(keyStr).String()
	if val == "" {
		return "", fmt.Errorf("No value read from %s key", keyStr)
	}
	return val, nil
}

// get an int in [low, high] from the config file
func getInt(section *ini.Section, keyStr string, def int, low int, high int) (int, error) {
	if !section.HasKey(keyStr) {
		return def, nil
	}
	val, err := section.Key(keyStr).Int()
	if err != nil {
		return -1, fmt.Errorf("%s in %s key", err, keyStr)
	}
	if val < low || val > high {
		return -1, fmt.Errorf("%d is not a valid number for %s. Must be between %d and %d inclusive.", val, keyStr, low, high)
	}
	return val, nil
}

func getLogLevel(section *ini.Section, keyStr string, def slog.Level) (slog.Level, error) {
	val, err := getString(section, keyStr, "")
	if err != nil || val == "" {
		return def, err
	}
	switch val {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return def, fmt.Errorf("%s is not a log level. Choose from debug, info, warn, or error.", val)
	}
}
