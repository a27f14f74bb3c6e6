// Package main is the entry point for the translator Lambda function.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/dasmlab/receitas/pkg/config"
	"github.com/dasmlab/receitas/pkg/handler"
	"github.com/dasmlab/receitas/pkg/translate"
)

var (
	initOnce sync.Once
	h        *handler.Handler
	initErr  error
)

func main() {
	lambda.Start(handleRequest)
}

func handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection comes before any other processing
	if warmup, ok := IsWarmupEvent(event); ok {
		return HandleWarmup(ctx, warmup)
	}

	initOnce.Do(func() { h, initErr = newHandler(ctx) })
	if initErr != nil {
		return nil, initErr
	}

	var req handler.Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}

	return h.Handle(ctx, req)
}

// newHandler builds the translator from RECEITAS_CONFIG, falling back to the
// built-in defaults. The lambda engine is rejected since it would call itself.
func newHandler(ctx context.Context) (*handler.Handler, error) {
	cfg, err := config.Load(os.Getenv("RECEITAS_CONFIG"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := config.NewLogger(cfg.LogLevel)

	translatorCfg, err := cfg.TranslatorConfig(logger)
	if err != nil {
		return nil, err
	}
	if translatorCfg.Engine == translate.EngineLambda {
		return nil, fmt.Errorf("engine %q cannot back the translator function", translatorCfg.Engine)
	}

	backend, err := translate.NewTranslator(ctx, translatorCfg)
	if err != nil {
		return nil, err
	}

	chunked := translate.NewChunkedTranslator(backend, translate.ChunkedOptions{
		MaxQueryLength: cfg.Translator.MaxQueryLength,
		Concurrency:    cfg.Translator.Concurrency,
		Engine:         string(translatorCfg.Engine),
		Logger:         logger,
	})
	return handler.New(chunked, logger), nil
}
