package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"study-quiz-service/internal/app"
	"study-quiz-service/internal/config"
	"study-quiz-service/internal/logging"
	"study-quiz-service/internal/metrics"
	transport "study-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	play, err := playConfig(cfg)
	if err != nil {
		return err
	}
	m := metrics.New()
	opts := []app.Option{app.WithLogger(log), app.WithRecorder(m)}

	service := app.NewQuizService(store.quizzes, store.ledger, store.results, play, opts...)
	stats := app.NewStatsService(store.quizzes, store.ledger, store.results, opts...)
	sweeper := app.NewSweeper(store.ledger, store.results, config.Duration(cfg.Session.SweepMinAge, app.DefaultSweepMinAge), opts...)
	if interval := config.Duration(cfg.Session.SweepInterval, 0); interval > 0 {
		go sweeper.Run(ctx, interval)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/ws/play", transport.NewWSHandler(service, transport.WithWSLogger(log)).ServePlay)
	catalog := app.NewCatalog(store.deleter, store.caches, opts...)
	transport.NewAPIHandler(service, stats, catalog, log).Register(mux)

	// WriteTimeout stays unset: websocket sessions outlive any fixed write deadline.
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// commandEnv loads config, logger and storage for the one-shot subcommands.
func commandEnv(ctx context.Context, configPath string) (config.Config, *logrus.Logger, *backend, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	log := logging.New(cfg.Log)
	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, log, store, nil
}
