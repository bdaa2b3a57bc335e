package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Models ModelsConfig `yaml:"models" mapstructure:"models"`
	Scorer ScorerConfig `yaml:"scorer" mapstructure:"scorer"`
	Agent  AgentConfig  `yaml:"agent" mapstructure:"agent"`
	Train  TrainConfig  `yaml:"train" mapstructure:"train"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ModelsConfig locates the serialized per-domain classifiers.
type ModelsConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Preload bool   `yaml:"preload" mapstructure:"preload"`
}

// ScorerConfig holds the risk thresholds, rule heuristic cut-offs and score
// bands. Bands are inclusive [lo, hi] pairs.
type ScorerConfig struct {
	HighThreshold      int     `yaml:"high_threshold" mapstructure:"high_threshold"`
	ModerateThreshold  int     `yaml:"moderate_threshold" mapstructure:"moderate_threshold"`
	FallbackScore      int     `yaml:"fallback_score" mapstructure:"fallback_score"`
	AttendanceCritical float64 `yaml:"attendance_critical" mapstructure:"attendance_critical"`
	AttendanceModerate float64 `yaml:"attendance_moderate" mapstructure:"attendance_moderate"`
	CGPACritical       float64 `yaml:"cgpa_critical" mapstructure:"cgpa_critical"`
	MaxFailures        int     `yaml:"max_failures" mapstructure:"max_failures"`
	LowBand            []int   `yaml:"low_band" mapstructure:"low_band"`
	ModerateBand       []int   `yaml:"moderate_band" mapstructure:"moderate_band"`
	HighBand           []int   `yaml:"high_band" mapstructure:"high_band"`
}

// AgentConfig configures the simulated counselor call agent.
type AgentConfig struct {
	WebhookURL     string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	RatePerSec     float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
	CallDelayMS    int     `yaml:"call_delay_ms" mapstructure:"call_delay_ms"`
	RetryAttempts  int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMS int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// TrainConfig configures offline model training.
type TrainConfig struct {
	DatasetDir  string  `yaml:"dataset_dir" mapstructure:"dataset_dir"`
	TestRatio   float64 `yaml:"test_ratio" mapstructure:"test_ratio"`
	Folds       int     `yaml:"folds" mapstructure:"folds"`
	Seed        uint64  `yaml:"seed" mapstructure:"seed"`
	GridFile    string  `yaml:"grid_file" mapstructure:"grid_file"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EDUPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "edupulse.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("models.dir", "models")
	v.SetDefault("models.preload", true)
	v.SetDefault("scorer.high_threshold", 75)
	v.SetDefault("scorer.moderate_threshold", 40)
	v.SetDefault("scorer.fallback_score", 50)
	v.SetDefault("scorer.attendance_critical", 60.0)
	v.SetDefault("scorer.attendance_moderate", 75.0)
	v.SetDefault("scorer.cgpa_critical", 5.0)
	v.SetDefault("scorer.max_failures", 1)
	v.SetDefault("scorer.low_band", []int{5, 39})
	v.SetDefault("scorer.moderate_band", []int{40, 74})
	v.SetDefault("scorer.high_band", []int{75, 95})
	v.SetDefault("agent.rate_per_sec", 2.0)
	v.SetDefault("agent.burst", 1)
	v.SetDefault("agent.call_delay_ms", 2000)
	v.SetDefault("agent.retry_attempts", 3)
	v.SetDefault("agent.retry_backoff_ms", 250)
	v.SetDefault("train.dataset_dir", "dataset")
	v.SetDefault("train.test_ratio", 0.2)
	v.SetDefault("train.folds", 3)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.concurrency", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by a given command mode.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Models.Dir == "" {
			errs = append(errs, "models.dir is required")
		}
	case "train":
		if c.Train.DatasetDir == "" {
			errs = append(errs, "train.dataset_dir is required")
		}
		if c.Train.TestRatio <= 0 || c.Train.TestRatio >= 1 {
			errs = append(errs, "train.test_ratio must be between 0 and 1")
		}
		if c.Train.Folds < 2 {
			errs = append(errs, "train.folds must be >= 2")
		}
		if c.Models.Dir == "" {
			errs = append(errs, "models.dir is required")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
