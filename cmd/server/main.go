package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/dasmlab/receitas/pkg/config"
	"github.com/dasmlab/receitas/pkg/mealdb"
	"github.com/dasmlab/receitas/pkg/rpc"
	"github.com/dasmlab/receitas/pkg/server"
	"github.com/dasmlab/receitas/pkg/service"
	"github.com/dasmlab/receitas/pkg/translate"
)

// Version information (set via -ldflags during build)
var version = "dev"

type flags struct {
	configPath     string
	httpPort       int
	grpcPort       int
	logLevel       string
	engine         string
	engineURL      string
	email          string
	lambdaFunction string
	maxQueryLength int
	concurrency    int
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "receitas",
		Short: "Portuguese recipe search over TheMealDB with chunked machine translation",
		Long: `receitas serves TheMealDB recipes in Portuguese.

Search terms are translated to English, and recipe names, ingredients and
instructions are translated back. Long texts are split into sentences and
clauses that fit the translation backend's query limit.

Endpoints:
  HTTP   /api/v1/recipes, /api/v1/translate, /api/v1/jobs, /health, /metrics
  gRPC   receitas.v1.RecipeService, grpc.health.v1.Health`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := root.Flags()
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	fs.IntVar(&f.httpPort, "http-port", 0, "HTTP server port")
	fs.IntVar(&f.grpcPort, "grpc-port", 0, "gRPC server port (0 disables gRPC)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.engine, "mt-engine", "", "Translation engine: mymemory, libretranslate or lambda")
	fs.StringVar(&f.engineURL, "mt-url", "", "Base URL for the translation engine API")
	fs.StringVar(&f.email, "mt-email", "", "Contact email sent to MyMemory for a higher daily quota")
	fs.StringVar(&f.lambdaFunction, "mt-lambda-function", "", "Translator Lambda function name or ARN")
	fs.IntVar(&f.maxQueryLength, "max-query-length", 0, "Maximum characters per translation request")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Translation requests in flight per text")

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("receitas version %s\n", version)
		},
	}
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("http-port") {
		cfg.HTTPPort = f.httpPort
	}
	if changed("grpc-port") {
		cfg.GRPCPort = f.grpcPort
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("mt-engine") {
		cfg.Translator.Engine = f.engine
	}
	if changed("mt-url") {
		cfg.Translator.BaseURL = f.engineURL
	}
	if changed("mt-email") {
		cfg.Translator.Email = f.email
	}
	if changed("mt-lambda-function") {
		cfg.Translator.LambdaFunction = f.lambdaFunction
	}
	if changed("max-query-length") {
		cfg.Translator.MaxQueryLength = f.maxQueryLength
	}
	if changed("concurrency") {
		cfg.Translator.Concurrency = f.concurrency
	}

	return cfg, cfg.Validate()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "receitas: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger := config.NewLogger(cfg.LogLevel)

	logger.WithFields(logrus.Fields{
		"http_port":        cfg.HTTPPort,
		"grpc_port":        cfg.GRPCPort,
		"mt_engine":        cfg.Translator.Engine,
		"max_query_length": cfg.Translator.MaxQueryLength,
		"concurrency":      cfg.Translator.Concurrency,
		"version":          version,
	}).Info("Starting receitas server")

	translatorCfg, err := cfg.TranslatorConfig(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := translate.NewTranslator(ctx, translatorCfg)
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	logger.Info("Checking translator health...")
	if err := backend.CheckHealth(ctx); err != nil {
		logger.WithError(err).Warn("Translator health check failed, but continuing anyway")
		logger.Warn("Untranslated text will be returned until the translator is ready")
	} else {
		logger.Info("Translator health check passed")
	}

	chunked := translate.NewChunkedTranslator(backend, translate.ChunkedOptions{
		MaxQueryLength: cfg.Translator.MaxQueryLength,
		Concurrency:    cfg.Translator.Concurrency,
		Engine:         string(translatorCfg.Engine),
		Logger:         logger,
	})
	meals := mealdb.NewClient(cfg.MealDB.BaseURL, cfg.MealDB.Timeout, logger)
	recipes := service.NewRecipeService(meals, chunked, cfg.MealDB.MaxResults, logger)

	jobQueue := service.NewJobQueue(logger)
	jobQueue.SetProcessor(service.NewJobProcessor(recipes, logger))

	// Periodic cleanup of finished jobs
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go func() {
		ticker := time.NewTicker(cfg.Jobs.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				jobQueue.CleanupOldJobs(cfg.Jobs.MaxAge)
			case <-cleanupCtx.Done():
				return
			}
		}
	}()
	logger.WithFields(logrus.Fields{
		"cleanup_interval": cfg.Jobs.CleanupInterval.String(),
		"max_age":          cfg.Jobs.MaxAge.String(),
	}).Info("Started job cleanup goroutine")

	errChan := make(chan error, 2)

	httpServer := server.NewHTTPServer(recipes, chunked, jobQueue, logger, cfg.HTTPPort)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	healthServer := health.NewServer()
	if cfg.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", cfg.GRPCPort, err)
		}

		grpcServer = grpc.NewServer(
			grpc.Creds(insecure.NewCredentials()),
			grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             15 * time.Second,
				PermitWithoutStream: true,
			}),
			grpc.KeepaliveParams(keepalive.ServerParameters{
				MaxConnectionIdle:     5 * time.Minute,
				MaxConnectionAge:      30 * time.Minute,
				MaxConnectionAgeGrace: 5 * time.Second,
				Time:                  30 * time.Second,
				Timeout:               10 * time.Second,
			}),
		)
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		rpc.RegisterRecipeServiceServer(grpcServer, rpc.NewRecipeService(chunked, recipes, logger))

		go func() {
			logger.WithFields(logrus.Fields{
				"port": cfg.GRPCPort,
			}).Info("gRPC server listening")
			if err := grpcServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	healthServer.Shutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server shutdown failed")
	}

	if grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully")
		case <-shutdownCtx.Done():
			logger.Warn("Graceful shutdown timeout, forcing stop...")
			grpcServer.Stop()
		}
	}

	return nil
}
