// Package config provides configuration management for swingmech.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSkipSwings lists session swings excluded from evaluation because the
// published reference series is incomplete or misaligned for them.
var DefaultSkipSwings = []string{
	"492_8", "125_4", "492_7", "203_2", "125_6", "125_5", "215_4",
	"215_5", "203_3", "203_1", "492_6", "203_4", "125_7",
}

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string

	// Dataset
	OBPRoot    string // root of the OpenBiomechanics checkout
	CaptureDir string // session directories with .c3d files
	DataDir    string // where computed artifacts are written
	OutputCSV  string // long-format joint-angle CSV

	// Filter
	FilterCutoffHz float64
	FilterOrder    int

	// Pipeline
	Workers int
	Persist bool
	DBPath  string

	// Evaluation
	TargetCSV  string // reference joint_angles.csv
	ResultsCSV string
	SkipSwings []string

	// API
	ListenAddr      string
	RateLimit       int // requests per minute per IP, 0 disables
	ShutdownTimeout time.Duration

	// Cache
	RedisAddr     string // empty = in-memory cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Dataset watcher
	WatchEnabled  bool
	WatchDebounce time.Duration
}

// FileConfig is the YAML configuration structure.
type FileConfig struct {
	LogLevel string `yaml:"logLevel,omitempty"`

	OBPRoot    string `yaml:"obpRoot,omitempty"`
	CaptureDir string `yaml:"captureDir,omitempty"`
	DataDir    string `yaml:"dataDir,omitempty"`
	OutputCSV  string `yaml:"outputCsv,omitempty"`

	Filter struct {
		CutoffHz *float64 `yaml:"cutoffHz,omitempty"`
		Order    *int     `yaml:"order,omitempty"`
	} `yaml:"filter,omitempty"`

	Pipeline struct {
		Workers *int   `yaml:"workers,omitempty"`
		Persist *bool  `yaml:"persist,omitempty"`
		DBPath  string `yaml:"dbPath,omitempty"`
	} `yaml:"pipeline,omitempty"`

	Eval struct {
		TargetCSV  string   `yaml:"targetCsv,omitempty"`
		ResultsCSV string   `yaml:"resultsCsv,omitempty"`
		SkipSwings []string `yaml:"skipSwings,omitempty"`
	} `yaml:"eval,omitempty"`

	API struct {
		ListenAddr      string `yaml:"listenAddr,omitempty"`
		RateLimit       *int   `yaml:"rateLimit,omitempty"`
		ShutdownTimeout string `yaml:"shutdownTimeout,omitempty"`
	} `yaml:"api,omitempty"`

	Cache struct {
		RedisAddr     string `yaml:"redisAddr,omitempty"`
		RedisPassword string `yaml:"redisPassword,omitempty"`
		RedisDB       *int   `yaml:"redisDb,omitempty"`
		TTL           string `yaml:"ttl,omitempty"`
	} `yaml:"cache,omitempty"`

	Watch struct {
		Enabled  *bool  `yaml:"enabled,omitempty"`
		Debounce string `yaml:"debounce,omitempty"`
	} `yaml:"watch,omitempty"`
}

// Loader resolves configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the configuration. A .env file in the working directory is
// honoured first so that SWINGMECH_* variables can live next to the data.
func (l *Loader) Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{}
	l.setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.OutputCSV == "" {
		cfg.OutputCSV = filepath.Join(cfg.DataDir, "output.csv")
	}
	if cfg.ResultsCSV == "" {
		cfg.ResultsCSV = filepath.Join(cfg.DataDir, "results_agged.csv")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "swingmech.db")
	}
	if cfg.CaptureDir == "" && cfg.OBPRoot != "" {
		cfg.CaptureDir = filepath.Join(cfg.OBPRoot, "baseball_hitting", "data", "c3d")
	}
	if cfg.TargetCSV == "" && cfg.OBPRoot != "" {
		cfg.TargetCSV = filepath.Join(cfg.OBPRoot, "baseball_hitting", "data", "full_sig", "joint_angles.csv")
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.LogLevel = "info"
	cfg.LogService = "swingmech"
	cfg.DataDir = "./data"
	cfg.FilterCutoffHz = 40
	cfg.FilterOrder = 4
	cfg.Workers = 4
	cfg.Persist = false
	cfg.SkipSwings = append([]string(nil), DefaultSkipSwings...)
	cfg.ListenAddr = ":8080"
	cfg.RateLimit = 120
	cfg.ShutdownTimeout = 10 * time.Second
	cfg.CacheTTL = 15 * time.Minute
	cfg.WatchEnabled = false
	cfg.WatchDebounce = 2 * time.Second
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-provided path
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fc, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.OBPRoot != "" {
		dst.OBPRoot = src.OBPRoot
	}
	if src.CaptureDir != "" {
		dst.CaptureDir = src.CaptureDir
	}
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.OutputCSV != "" {
		dst.OutputCSV = src.OutputCSV
	}
	if src.Filter.CutoffHz != nil {
		dst.FilterCutoffHz = *src.Filter.CutoffHz
	}
	if src.Filter.Order != nil {
		dst.FilterOrder = *src.Filter.Order
	}
	if src.Pipeline.Workers != nil {
		dst.Workers = *src.Pipeline.Workers
	}
	if src.Pipeline.Persist != nil {
		dst.Persist = *src.Pipeline.Persist
	}
	if src.Pipeline.DBPath != "" {
		dst.DBPath = src.Pipeline.DBPath
	}
	if src.Eval.TargetCSV != "" {
		dst.TargetCSV = src.Eval.TargetCSV
	}
	if src.Eval.ResultsCSV != "" {
		dst.ResultsCSV = src.Eval.ResultsCSV
	}
	if len(src.Eval.SkipSwings) > 0 {
		dst.SkipSwings = append([]string(nil), src.Eval.SkipSwings...)
	}
	if src.API.ListenAddr != "" {
		dst.ListenAddr = src.API.ListenAddr
	}
	if src.API.RateLimit != nil {
		dst.RateLimit = *src.API.RateLimit
	}
	if src.API.ShutdownTimeout != "" {
		if d, err := time.ParseDuration(src.API.ShutdownTimeout); err == nil {
			dst.ShutdownTimeout = d
		}
	}
	if src.Cache.RedisAddr != "" {
		dst.RedisAddr = src.Cache.RedisAddr
	}
	if src.Cache.RedisPassword != "" {
		dst.RedisPassword = src.Cache.RedisPassword
	}
	if src.Cache.RedisDB != nil {
		dst.RedisDB = *src.Cache.RedisDB
	}
	if src.Cache.TTL != "" {
		if d, err := time.ParseDuration(src.Cache.TTL); err == nil {
			dst.CacheTTL = d
		}
	}
	if src.Watch.Enabled != nil {
		dst.WatchEnabled = *src.Watch.Enabled
	}
	if src.Watch.Debounce != "" {
		if d, err := time.ParseDuration(src.Watch.Debounce); err == nil {
			dst.WatchDebounce = d
		}
	}
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = ParseString("SWINGMECH_LOG_LEVEL", cfg.LogLevel)
	// obp_repo_root_path is the historical variable name used by the original
	// analysis scripts; keep honouring it.
	cfg.OBPRoot = ParseString("SWINGMECH_OBP_ROOT", ParseString("obp_repo_root_path", cfg.OBPRoot))
	cfg.CaptureDir = ParseString("SWINGMECH_CAPTURE_DIR", cfg.CaptureDir)
	cfg.DataDir = ParseString("SWINGMECH_DATA", cfg.DataDir)
	cfg.OutputCSV = ParseString("SWINGMECH_OUTPUT_CSV", cfg.OutputCSV)
	cfg.FilterCutoffHz = ParseFloat("SWINGMECH_FILTER_CUTOFF_HZ", cfg.FilterCutoffHz)
	cfg.FilterOrder = ParseInt("SWINGMECH_FILTER_ORDER", cfg.FilterOrder)
	cfg.Workers = ParseInt("SWINGMECH_WORKERS", cfg.Workers)
	cfg.Persist = ParseBool("SWINGMECH_PERSIST", cfg.Persist)
	cfg.DBPath = ParseString("SWINGMECH_DB_PATH", cfg.DBPath)
	cfg.TargetCSV = ParseString("SWINGMECH_TARGET_CSV", cfg.TargetCSV)
	cfg.ResultsCSV = ParseString("SWINGMECH_RESULTS_CSV", cfg.ResultsCSV)
	cfg.ListenAddr = ParseString("SWINGMECH_LISTEN", cfg.ListenAddr)
	cfg.RateLimit = ParseInt("SWINGMECH_RATE_LIMIT", cfg.RateLimit)
	cfg.ShutdownTimeout = ParseDuration("SWINGMECH_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.RedisAddr = ParseString("SWINGMECH_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("SWINGMECH_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("SWINGMECH_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = ParseDuration("SWINGMECH_CACHE_TTL", cfg.CacheTTL)
	cfg.WatchEnabled = ParseBool("SWINGMECH_WATCH", cfg.WatchEnabled)
	cfg.WatchDebounce = ParseDuration("SWINGMECH_WATCH_DEBOUNCE", cfg.WatchDebounce)
}

// Validate checks invariants that would make any subcommand misbehave.
func Validate(cfg AppConfig) error {
	if cfg.FilterOrder < 2 || cfg.FilterOrder%2 != 0 {
		return fmt.Errorf("filter order must be a positive even number, got %d", cfg.FilterOrder)
	}
	if cfg.FilterCutoffHz <= 0 {
		return fmt.Errorf("filter cutoff must be positive, got %g", cfg.FilterCutoffHz)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", cfg.RateLimit)
	}
	return nil
}
