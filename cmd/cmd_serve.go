package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"farm_service/internal/api"
	"farm_service/internal/core"
	"farm_service/internal/domain/repository"
	"farm_service/internal/logging"
)

var serveFlags struct {
	migrate bool
	warm    bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the risk API and Prometheus metrics on the configured address.

The classifier trains on first use unless --warm is given, in which case it
trains before the listener opens.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.BoolVar(&serveFlags.migrate, "migrate", false, "create missing tables before serving")
	f.BoolVar(&serveFlags.warm, "warm", false, "train the classifier before accepting requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logging.New("server")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	if serveFlags.migrate {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := core.NewMetrics(reg)

	recorder := repository.NewSQLTrainingRecorder(repo.DB())
	predictor := newPredictor(repo, core.WithMetrics(metrics))
	if serveFlags.warm {
		if _, err := predictor.Train(ctx); err != nil {
			return fmt.Errorf("initial training: %w", err)
		}
	}

	service := core.NewPredictionService(repo, predictor,
		core.WithAlerts(cfg.Alerts),
		core.WithServiceMetrics(metrics),
	)
	handler := api.NewHandler(service,
		api.WithTrainer(predictor),
		api.WithRunLister(recorder),
		api.WithPendingLister(repo),
		api.WithGatherer(reg),
	)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler.Routes()}
	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
