package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/openmobility/tripflow/pkg/common/config"
	"github.com/openmobility/tripflow/pkg/common/database"
	"github.com/openmobility/tripflow/pkg/common/kafka"
	"github.com/openmobility/tripflow/pkg/common/logger"
	"github.com/openmobility/tripflow/pkg/common/middleware"
	"github.com/openmobility/tripflow/pkg/gtfsrt"
	"github.com/openmobility/tripflow/pkg/observability/metrics"
	"github.com/openmobility/tripflow/pkg/realtime"
	"github.com/openmobility/tripflow/pkg/schedule"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := realtime.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate realtime tables")
	}

	redisClient := database.GetRedis()
	cache := realtime.NewRedisFingerprintCache(redisClient, cfg.FingerprintTTL)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaFeedTopic)
	defer producer.Close()

	scheduleClient := schedule.NewClient(cfg.ScheduleBaseURL, cfg.ScheduleToken, cfg.ScheduleTimeout)
	finder := schedule.NewCachedFinder(scheduleClient, cfg.PatternCacheTTL)

	resolver := realtime.NewResolver(finder, cfg.CirculationWindowBefore, cfg.CirculationWindowAfter)
	engine := realtime.NewEngine(resolver)
	connector := gtfsrt.NewConnector()

	svc := realtime.NewService(repo, engine, connector, cache, producer)

	catalog, err := realtime.LoadCatalog(cfg.ContributorsFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load contributor catalog")
	}
	if err := svc.SeedContributors(context.Background(), catalog); err != nil {
		logger.Log.WithError(err).Fatal("failed to seed contributors")
	}

	handler := realtime.NewHTTPHandler(svc, cfg.MaxRequestBody, cfg.TripUpdateRetentionDays, cfg.IngestionRecordRetentionDays)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, `{"status":"not ready"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Reconciler Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	go svc.RunSweeper(ctx, cfg.SweepInterval, cfg.TripUpdateRetentionDays, cfg.IngestionRecordRetentionDays)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Reconciler Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Reconciler Service stopped")
}
