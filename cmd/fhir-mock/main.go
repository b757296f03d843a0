package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/fhirmock/internal/config"
	"github.com/ehr/fhirmock/pkg/fhirmock"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhir-mock",
		Short: "In-memory mock FHIR R4 server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock FHIR server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
	cmd.Flags().String("base-url", "", "Public base URL of the FHIR endpoint (overrides BASE_URL)")
	cmd.Flags().String("seed", "", "JSON or YAML file of resources to load at startup (overrides SEED_FILE)")
	return cmd
}

func seedCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-check <file>",
		Short: "Parse a seed file and print resource counts per type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkSeed(cmd.OutOrStdout(), args[0])
		},
	}
}

// applyFlags copies explicitly set flags over the loaded config and
// re-validates the result.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("seed") {
		cfg.SeedFile, _ = flags.GetString("seed")
	}
	return cfg.Validate()
}

func checkSeed(w io.Writer, path string) error {
	resources, err := fhirmock.ReadSeedFile(path)
	if err != nil {
		return err
	}
	types, counts := fhirmock.CountByType(resources)

	fmt.Fprintf(w, "%-30s %s\n", "RESOURCE TYPE", "COUNT")
	for _, t := range types {
		fmt.Fprintf(w, "%-30s %d\n", t, counts[t])
	}
	fmt.Fprintf(w, "%-30s %d\n", "TOTAL", len(resources))
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

func newServer(cfg *config.Config, logger zerolog.Logger) (*fhirmock.Server, error) {
	s := fhirmock.New(
		fhirmock.WithBaseURL(cfg.BaseURL),
		fhirmock.WithLogger(logger),
		fhirmock.WithMaxCount(cfg.SearchMaxCount),
		fhirmock.WithUnknownParamWarnings(cfg.UnknownParamWarnings),
		fhirmock.WithBodyLimit(cfg.BodyLimit),
	)
	if cfg.SeedFile != "" {
		if _, err := s.LoadFile(cfg.SeedFile); err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
	}
	return s, nil
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)

	s, err := newServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed server")
	}

	e := s.Echo()
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Content-Type", "If-Match", "If-None-Exist", "X-Request-ID"},
		ExposeHeaders: []string{"Location", "ETag", "Last-Modified", "X-Request-ID"},
	}))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("base_url", s.BaseURL()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
