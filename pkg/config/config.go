// Package config loads the service configuration from a YAML file on top of
// built-in defaults. Command-line flags override individual fields afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dasmlab/receitas/pkg/chunker"
	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/service"
	"github.com/dasmlab/receitas/pkg/translate"
)

// Config is the top-level configuration file structure.
type Config struct {
	HTTPPort   int        `yaml:"http_port"`
	GRPCPort   int        `yaml:"grpc_port"`
	LogLevel   string     `yaml:"log_level"`
	Translator Translator `yaml:"translator"`
	MealDB     MealDB     `yaml:"mealdb"`
	Jobs       Jobs       `yaml:"jobs"`
}

// Translator configures the translation backend and the chunked translator.
type Translator struct {
	// Engine: "mymemory", "libretranslate" or "lambda".
	Engine  string        `yaml:"engine"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Email   string        `yaml:"email,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
	// LambdaFunction is required for the lambda engine.
	LambdaFunction string `yaml:"lambda_function,omitempty"`
	// MaxQueryLength is shared by the whole-text check and both split levels.
	MaxQueryLength int `yaml:"max_query_length"`
	// Concurrency is the number of backend calls in flight per text. 1 is sequential.
	Concurrency int `yaml:"concurrency"`
}

// MealDB configures the recipe database client.
type MealDB struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
}

// Jobs configures asynchronous recipe jobs.
type Jobs struct {
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort: 8080,
		GRPCPort: 50051,
		LogLevel: "info",
		Translator: Translator{
			Engine:         string(translate.EngineMyMemory),
			Timeout:        translate.DefaultMyMemoryTimeout,
			MaxQueryLength: chunker.DefaultMaxQueryLength,
			Concurrency:    1,
		},
		MealDB: MealDB{
			BaseURL:    mealdb.DefaultBaseURL,
			Timeout:    mealdb.DefaultTimeout,
			MaxResults: service.DefaultMaxResults,
		},
		Jobs: Jobs{
			MaxAge:          30 * time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port out of range: %d", c.GRPCPort)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	engine, err := translate.ParseEngineType(c.Translator.Engine)
	if err != nil {
		return fmt.Errorf("translator.engine: %w", err)
	}
	if engine == translate.EngineLambda && c.Translator.LambdaFunction == "" {
		return fmt.Errorf("translator.lambda_function is required for the lambda engine")
	}
	if c.Translator.MaxQueryLength < 2 {
		return fmt.Errorf("translator.max_query_length must be at least 2, got %d", c.Translator.MaxQueryLength)
	}
	if c.Translator.Concurrency < 1 {
		return fmt.Errorf("translator.concurrency must be at least 1, got %d", c.Translator.Concurrency)
	}
	if c.MealDB.MaxResults < 1 {
		return fmt.Errorf("mealdb.max_results must be at least 1, got %d", c.MealDB.MaxResults)
	}
	if c.Jobs.MaxAge <= 0 {
		return fmt.Errorf("jobs.max_age must be positive, got %s", c.Jobs.MaxAge)
	}
	if c.Jobs.CleanupInterval <= 0 {
		return fmt.Errorf("jobs.cleanup_interval must be positive, got %s", c.Jobs.CleanupInterval)
	}
	return nil
}

// TranslatorConfig builds the backend factory configuration.
func (c Config) TranslatorConfig(logger *logrus.Logger) (translate.Config, error) {
	engine, err := translate.ParseEngineType(c.Translator.Engine)
	if err != nil {
		return translate.Config{}, err
	}
	return translate.Config{
		Engine:         engine,
		BaseURL:        c.Translator.BaseURL,
		Email:          c.Translator.Email,
		Timeout:        c.Translator.Timeout,
		LambdaFunction: c.Translator.LambdaFunction,
		Logger:         logger,
	}, nil
}

// NewLogger builds the logger the way every binary configures it.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
