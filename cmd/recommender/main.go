package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/internal/app"
	"github.com/coursewise/coursewise/internal/config"
	"github.com/coursewise/coursewise/internal/datasource"
)

func main() {
	var (
		studentID = flag.String("student", "", "print recommendations for one student and exit")
		batchOnce = flag.Bool("batch-once", false, "run one batch recommendation pass and exit")
		schedule  = flag.Bool("schedule", false, "run the periodic retrain-and-batch scheduler")
		serve     = flag.Bool("serve", false, "serve the HTTP API")
		ingest    = flag.Bool("ingest", false, "bulk-load the configured flat files into postgres and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *ingest {
		if err := runIngest(cfg); err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	logger := application.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *studentID != "":
		record, err := application.Engine().RecommendForStudent(ctx, *studentID)
		if err != nil {
			log.Fatalf("Recommendation failed: %v", err)
		}
		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode record: %v", err)
		}
		fmt.Println(string(out))

	case *batchOnce:
		n, err := application.Engine().BatchRecommendations(ctx)
		if err != nil {
			log.Fatalf("Batch run failed: %v", err)
		}
		logger.WithField("students", n).Info("Batch run finished")

	case *schedule:
		app.NewScheduler(application.Engine(), cfg.Scheduler.Interval, logger).Run(ctx)

	case *serve:
		runServer(ctx, cfg, application)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runServer(ctx context.Context, cfg *config.Config, application *app.App) {
	logger := application.Logger()

	// Train up front so the first request is served warm; failures are not
	// fatal, a lazy fit will retry on demand.
	if err := application.Engine().TrainModels(ctx); err != nil {
		logger.WithError(err).Warn("Initial training failed, continuing with lazy fit")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: application.Router(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()
	logger.WithField("port", cfg.Server.Port).Info("Server started")

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exited")
}

func runIngest(cfg *config.Config) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := datasource.NewPostgresStoreFromURL(ctx, cfg.DataSource.PostgresURL, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ing := datasource.NewIngestor(store.DB(), logger)
	return ing.LoadFiles(ctx, cfg.DataSource.StudentsPath, cfg.DataSource.ContentPath, cfg.DataSource.SponsorsPath)
}
