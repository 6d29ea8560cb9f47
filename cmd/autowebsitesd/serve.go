package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	autowebsites "github.com/isethius/Autowebsites-sub001"
	"github.com/isethius/Autowebsites-sub001/api"
	"github.com/isethius/Autowebsites-sub001/campaign"
	"github.com/isethius/Autowebsites-sub001/engine"
	"github.com/isethius/Autowebsites-sub001/observability"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator daemon",
	Long: `Run the scheduler, the outreach pipeline, and the HTTP API in one
process. The nightly cron trigger fires cycles automatically; manual
triggers arrive over the API.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP listen port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger()
	logger.Info("starting autowebsitesd", slog.String("version", version))

	s, closeStore, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rootOpts := []autowebsites.Option{
		autowebsites.WithStore(s),
		autowebsites.WithLogger(logger),
	}
	if v := os.Getenv("DAILY_EMAIL_LIMIT"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return fmt.Errorf("DAILY_EMAIL_LIMIT %q: %w", v, convErr)
		}
		rootOpts = append(rootOpts, autowebsites.WithDailyEmailLimit(n))
	}
	if name := os.Getenv("LOCK_NAME"); name != "" {
		rootOpts = append(rootOpts, autowebsites.WithLockName(name))
	}

	o, err := autowebsites.New(rootOpts...)
	if err != nil {
		return err
	}

	engOpts, err := collaboratorOptions(ctx, logger)
	if err != nil {
		return err
	}
	engOpts = append(engOpts,
		engine.WithCampaign(campaign.FromEnv(campaign.Default())),
		engine.WithVersion(version),
	)
	cronExpr := os.Getenv("CRON_SCHEDULE")
	if cronExpr == "" {
		cronExpr = "0 22 * * *"
	}
	engOpts = append(engOpts, engine.WithCronSchedule(cronExpr))

	eng, err := engine.Build(o, engOpts...)
	if err != nil {
		return err
	}

	// Migrations are idempotent; running them on boot keeps single-binary
	// deployments from needing a separate migrate step.
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var apiOpts []api.Option
	if secret := os.Getenv("API_AUTH_SECRET"); secret != "" {
		apiOpts = append(apiOpts, api.WithAuthSecret([]byte(secret)))
	} else {
		logger.Warn("API_AUTH_SECRET not set; the API accepts unauthenticated requests")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           api.New(eng, apiOpts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", srv.Addr))
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("http shutdown", slog.String("error", shutdownErr.Error()))
		}
		return eng.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
