package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EngineType represents the type of translation engine to use.
type EngineType string

const (
	// EngineMyMemory uses the public MyMemory API.
	EngineMyMemory EngineType = "mymemory"
	// EngineLibreTranslate uses LibreTranslate as the backend.
	EngineLibreTranslate EngineType = "libretranslate"
	// EngineLambda invokes a translator function on AWS Lambda.
	EngineLambda EngineType = "lambda"
)

// Config holds configuration for creating a Translator instance.
type Config struct {
	// Engine specifies which translation engine to use.
	Engine EngineType
	// BaseURL is the base URL for HTTP engines. Each engine has its own default.
	BaseURL string
	// Email is passed to MyMemory to raise the anonymous quota.
	Email string
	// Timeout bounds a single HTTP call.
	Timeout time.Duration
	// LambdaFunction is the function name for EngineLambda.
	LambdaFunction string
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewTranslator creates a new Translator instance based on the configuration.
func NewTranslator(ctx context.Context, cfg Config) (Translator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine":   cfg.Engine,
		"base_url": cfg.BaseURL,
	}).Info("Creating translator instance")

	switch cfg.Engine {
	case EngineMyMemory:
		return NewMyMemoryClient(cfg.BaseURL, cfg.Email, cfg.Timeout, cfg.Logger), nil
	case EngineLibreTranslate:
		return NewLibreTranslateClient(cfg.BaseURL, cfg.Timeout, cfg.Logger), nil
	case EngineLambda:
		if cfg.LambdaFunction == "" {
			return nil, fmt.Errorf("lambda engine requires a function name")
		}
		return NewLambdaClientFromEnv(ctx, cfg.LambdaFunction, cfg.Logger)
	default:
		cfg.Logger.WithFields(logrus.Fields{
			"engine": cfg.Engine,
		}).Error("Unknown translation engine")
		return nil, fmt.Errorf("unknown translation engine: %s", cfg.Engine)
	}
}

// ParseEngineType parses a string into an EngineType.
func ParseEngineType(s string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mymemory":
		return EngineMyMemory, nil
	case "libretranslate":
		return EngineLibreTranslate, nil
	case "lambda":
		return EngineLambda, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: mymemory, libretranslate, lambda)", s)
	}
}
