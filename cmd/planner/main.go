package main

import (
	"context"
	"database/sql"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/Obel-arg/catch-influencer-sub003/internal/content"
	"github.com/Obel-arg/catch-influencer-sub003/internal/engagement"
	"github.com/Obel-arg/catch-influencer-sub003/internal/handlers"
	"github.com/Obel-arg/catch-influencer-sub003/internal/metricsfetch"
	"github.com/Obel-arg/catch-influencer-sub003/internal/schedule"
	"github.com/Obel-arg/catch-influencer-sub003/internal/session"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients/metricsapi"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients/scheduleapi"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/config"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/database"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/kafka"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/logging"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/monitoring"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/redis"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/server"
	"github.com/Obel-arg/catch-influencer-sub003/pkg/version"
)

const serviceName = "planner"

func main() {
	logger := logging.NewLoggerWithService(serviceName)
	config.LoadEnv(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthChecker := monitoring.NewHealthChecker(serviceName, version.Version)
	metricsCollector := monitoring.NewMetricsCollector(serviceName, version.Version, version.GitCommit)
	plannerMetrics := &handlers.PlannerMetrics{
		Requests:        metricsCollector.NewCounter("requests_total", "Planner API requests by handler and outcome", []string{"handler", "status"}),
		CacheEvents:     metricsCollector.NewCounter("metrics_cache_events_total", "Engagement metrics cache events", []string{"event"}),
		ScheduleLoads:   metricsCollector.NewCounter("schedule_reloads_total", "Campaign schedule snapshot loads", []string{"status"}),
		SessionsCreated: metricsCollector.NewPlainCounter("sessions_created_total", "View sessions created"),
	}

	required := map[string]string{}
	autoMigrate := config.GetEnvBool("DB_AUTO_MIGRATE", false)

	// Schedules
	var scheduleSource schedule.Source
	switch backend := config.GetEnv("SCHEDULE_BACKEND", "postgres"); backend {
	case "postgres":
		dbCfg := database.DefaultConfig()
		dbCfg.URL = config.GetEnv("DATABASE_URL", "")
		required["DATABASE_URL"] = dbCfg.URL
		db, err := database.Connect(ctx, dbCfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to schedule database")
		}
		defer db.Close()
		if autoMigrate {
			migrate(ctx, db, database.PostgresSchema, logger)
		}
		healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
		scheduleSource = schedule.NewPostgresStore(db, logger)
	case "http":
		baseURL := config.GetEnv("SCHEDULE_API_URL", "")
		required["SCHEDULE_API_URL"] = baseURL
		execCfg := clients.DefaultHTTPExecutorConfig("schedule-api")
		execCfg.Logger = logger
		client := scheduleapi.NewClient(baseURL,
			scheduleapi.WithHTTPExecutorConfig(execCfg),
			scheduleapi.WithToken(config.GetEnv("SCHEDULE_API_TOKEN", "")),
		)
		scheduleSource = schedule.NewAPISource(client)
		if health := config.GetEnv("SCHEDULE_API_HEALTH_URL", ""); health != "" {
			healthChecker.AddCheck("schedule_api", monitoring.HTTPServiceHealthCheck("schedule-api", health))
		}
	default:
		logger.WithField("backend", backend).Fatal("Unknown SCHEDULE_BACKEND")
	}

	snapshots := schedule.NewSnapshots(scheduleSource, schedule.SnapshotOptions{
		LoadTimeout:  config.GetEnvDuration("SCHEDULE_LOAD_TIMEOUT", 30*time.Second),
		MaxCampaigns: config.GetEnvInt("SCHEDULE_MAX_CAMPAIGNS", 1000),
		OnReload:     plannerMetrics.IncScheduleLoad,
	}, logger)

	// Engagement metrics
	var metricsSource metricsfetch.Source
	switch backend := config.GetEnv("METRICS_BACKEND", "http"); backend {
	case "http":
		baseURL := config.GetEnv("METRICS_API_URL", "")
		required["METRICS_API_URL"] = baseURL
		execCfg := clients.DefaultHTTPExecutorConfig("metrics-api")
		execCfg.Logger = logger
		client := metricsapi.NewClient(baseURL,
			metricsapi.WithHTTPExecutorConfig(execCfg),
			metricsapi.WithToken(config.GetEnv("METRICS_API_TOKEN", "")),
		)
		metricsSource = engagement.NewAPISource(client)
		if health := config.GetEnv("METRICS_API_HEALTH_URL", ""); health != "" {
			healthChecker.AddCheck("metrics_api", monitoring.HTTPServiceHealthCheck("metrics-api", health))
		}
	case "clickhouse":
		chCfg := database.DefaultClickHouseConfig()
		chCfg.Addr = config.GetEnvList("CLICKHOUSE_ADDR", chCfg.Addr)
		chCfg.Database = config.GetEnv("CLICKHOUSE_DB", chCfg.Database)
		chCfg.Username = config.GetEnv("CLICKHOUSE_USER", chCfg.Username)
		chCfg.Password = config.GetEnv("CLICKHOUSE_PASSWORD", "")
		ch, err := database.ConnectClickHouse(ctx, chCfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer ch.Close()
		if autoMigrate {
			migrate(ctx, ch, database.ClickHouseSchema, logger)
		}
		healthChecker.AddCheck("clickhouse", monitoring.ClickHouseHealthCheck(ch))
		metricsSource = engagement.NewClickHouseSource(ch)
	default:
		logger.WithField("backend", backend).Fatal("Unknown METRICS_BACKEND")
	}

	coordinator := metricsfetch.New(metricsSource, metricsfetch.Options{
		FetchTimeout:        config.GetEnvDuration("METRICS_FETCH_TIMEOUT", 10*time.Second),
		FallbackConcurrency: config.GetEnvInt("METRICS_FETCH_CONCURRENCY", 4),
	}, plannerMetrics.CoordinatorHooks(), logger)

	// Sessions
	sessionTTL := config.GetEnvDuration("SESSION_TTL", 24*time.Hour)
	var sessions session.Store
	switch backend := config.GetEnv("SESSION_BACKEND", "memory"); backend {
	case "memory":
		sessions = session.NewMemoryStore(sessionTTL)
	case "redis":
		client, err := redis.NewUniversalClient(ctx, redis.ConfigFromEnv())
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer func() { _ = client.Close() }()
		healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(client))
		sessions = session.NewRedisStore(client, config.GetEnv("REDIS_KEY_PREFIX", serviceName), sessionTTL)
	default:
		logger.WithField("backend", backend).Fatal("Unknown SESSION_BACKEND")
	}

	platforms, err := content.LoadPlatformTable(config.GetEnv("PLATFORM_TYPES_FILE", ""))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load platform table")
	}

	// Schedule change events
	if brokers := config.GetEnvList("KAFKA_BROKERS", nil); len(brokers) > 0 {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:    brokers,
			GroupID:    config.GetEnv("KAFKA_GROUP_ID", serviceName),
			ClientID:   config.GetEnv("KAFKA_CLIENT_ID", serviceName),
			FromLatest: true,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka consumer")
		}
		defer func() { _ = consumer.Close() }()

		consumer.AddHandler(config.GetEnv("KAFKA_SCHEDULE_TOPIC", "campaign_schedule_changes"), schedule.ChangeHandler(snapshots, logger))
		healthChecker.AddCheck("kafka", monitoring.KafkaHealthCheck(consumer.Ping))

		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Kafka consumer stopped")
			}
		}()
	}

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(required))

	serverConfig := server.DefaultConfig(serviceName, "18040")
	app := server.SetupServiceRouter(logger, serverConfig, healthChecker, metricsCollector)

	handlers.Routes{
		Sessions:  handlers.NewSessionHandler(sessions, snapshots, coordinator, logger, plannerMetrics),
		Metrics:   handlers.NewMetricsHandler(coordinator, snapshots, logger, plannerMetrics),
		Campaigns: handlers.NewCampaignHandler(snapshots, logger, plannerMetrics),
		Platforms: handlers.NewPlatformHandler(platforms),
	}.Register(app.Group("/api"))

	logger.WithFields(logging.Fields{
		"version": version.Version,
		"commit":  version.GetShortCommit(),
		"checks":  healthChecker.Names(),
	}).Info("Planner configured")

	if err := server.Run(ctx, serverConfig, app, logger); err != nil {
		logger.Fatal(err.Error())
	}
}

func migrate(ctx context.Context, db *sql.DB, schema string, logger logging.Logger) {
	if err := database.ApplySchema(ctx, db, schema, logger); err != nil {
		logger.WithError(err).WithField("schema", schema).Fatal("Failed to apply schema")
	}
}
