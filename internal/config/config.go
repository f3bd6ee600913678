// Package config loads the service configuration.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults
//  2. Config file: $PLATESENSE_CONFIG, else ./platesense.yaml, else
//     <user config dir>/platesense/config.yaml
//  3. Environment: PLATESENSE_<SECTION>_<KEY> for every key, plus the short
//     names listed by getEnvSpecs (PLATESENSE_PORT, PLATESENSE_LOG_LEVEL, ...)
//  4. Runtime overrides passed to Load (CLI flags)
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Identity of the application for config and env lookups.
const (
	AppName      = "platesense"
	EnvPrefix    = "PLATESENSE"
	ConfigEnvVar = EnvPrefix + "_CONFIG"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Readiness ReadinessConfig `mapstructure:"readiness" yaml:"readiness"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Result    ResultConfig    `mapstructure:"result" yaml:"result"`
	Usage     UsageConfig     `mapstructure:"usage" yaml:"usage"`
	Archive   ArchiveConfig   `mapstructure:"archive" yaml:"archive"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// RateLimit is requests per second on /api routes. Zero disables it.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`

	// StaticDir, when set, is served at /.
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ReadinessConfig struct {
	ImagePath  string `mapstructure:"image_path" yaml:"image_path"`
	WeightPath string `mapstructure:"weight_path" yaml:"weight_path"`

	// ImageGlob, when set, replaces the image status artifact with "newest
	// file matching the pattern under ImageRoot".
	ImageGlob string `mapstructure:"image_glob" yaml:"image_glob"`
	ImageRoot string `mapstructure:"image_root" yaml:"image_root"`

	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AnalysisConfig struct {
	Command string            `mapstructure:"command" yaml:"command"`
	Args    []string          `mapstructure:"args" yaml:"args"`
	Env     map[string]string `mapstructure:"env" yaml:"env"`
	Dir     string            `mapstructure:"dir" yaml:"dir"`
	Timeout time.Duration     `mapstructure:"timeout" yaml:"timeout"`
}

type ResultConfig struct {
	Path string `mapstructure:"path" yaml:"path"`

	// RequireCompleted hides the artifact unless the current job completed.
	RequireCompleted bool `mapstructure:"require_completed" yaml:"require_completed"`
}

type UsageConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Profile         string `mapstructure:"profile" yaml:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load builds the configuration from all sources and remembers it for
// GetConfig. Each overrides map may be nested ({"server": {"port": 9000}})
// or use dotted keys ({"server.port": 9000}).
func Load(_ context.Context, overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	file, err := resolveConfigFile()
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 5)
	v.SetDefault("server.static_dir", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("readiness.image_path", "capture_status.json")
	v.SetDefault("readiness.weight_path", "weight_data.txt")
	v.SetDefault("readiness.image_glob", "")
	v.SetDefault("readiness.image_root", ".")
	v.SetDefault("readiness.poll_interval", "1s")
	v.SetDefault("readiness.timeout", "60s")

	v.SetDefault("analysis.command", "./analyze_food.sh")
	v.SetDefault("analysis.args", []string{})
	v.SetDefault("analysis.env", map[string]string{})
	v.SetDefault("analysis.dir", "")
	v.SetDefault("analysis.timeout", "2m")

	v.SetDefault("result.path", filepath.Join("data", "nutrition_result.json"))
	v.SetDefault("result.require_completed", false)

	v.SetDefault("usage.enabled", true)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "results/")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.profile", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.force_path_style", false)
}

// envSpec maps a short environment variable to a config key.
type envSpec struct {
	Name string
	Path string
}

// getEnvSpecs lists the short environment names. The long form
// PLATESENSE_<SECTION>_<KEY> works for every key without an entry here.
//
// NOTE: PLATESENSE_IMAGE_PATH, PLATESENSE_WEIGHT_GRAMS and
// PLATESENSE_RESULT_PATH are reserved for the analysis command's
// environment.
func getEnvSpecs() []envSpec {
	short := map[string]string{
		"HOST":             "server.host",
		"PORT":             "server.port",
		"READ_TIMEOUT":     "server.read_timeout",
		"WRITE_TIMEOUT":    "server.write_timeout",
		"IDLE_TIMEOUT":     "server.idle_timeout",
		"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
		"RATE_LIMIT":       "server.rate_limit",
		"STATIC_DIR":       "server.static_dir",
		"LOG_LEVEL":        "logging.level",
		"LOG_FORMAT":       "logging.format",
		"CAPTURE_STATUS":   "readiness.image_path",
		"WEIGHT_FILE":      "readiness.weight_path",
		"POLL_INTERVAL":    "readiness.poll_interval",
		"WAIT_TIMEOUT":     "readiness.timeout",
		"RESULT_FILE":      "result.path",
	}
	specs := make([]envSpec, 0, len(short))
	for name, path := range short {
		specs = append(specs, envSpec{Name: EnvPrefix + "_" + name, Path: path})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// resolveConfigFile returns the config file to read, or "" to run on
// defaults. An explicit $PLATESENSE_CONFIG must exist.
func resolveConfigFile() (string, error) {
	if path := strings.TrimSpace(os.Getenv(ConfigEnvVar)); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file from %s: %w", ConfigEnvVar, err)
		}
		return path, nil
	}
	candidates := append([]string{AppName + ".yaml"}, getUserConfigPaths()...)
	for _, path := range candidates {
		info, err := os.Stat(path)
		switch {
		case err == nil && info.Mode().IsRegular():
			return path, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	return "", nil
}

func getUserConfigPaths() []string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return nil
	}
	return []string{filepath.Join(dir, AppName, "config.yaml")}
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok && !isMapKey(key) {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

// isMapKey reports config keys whose value is itself a map.
func isMapKey(key string) bool {
	return key == "analysis.env"
}
