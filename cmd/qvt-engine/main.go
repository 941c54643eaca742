package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qvt-engine/internal/aggregator"
	"qvt-engine/internal/config"
	"qvt-engine/internal/consumer"
	"qvt-engine/internal/evaluator"
	"qvt-engine/internal/export"
	httpapi "qvt-engine/internal/http"
	"qvt-engine/internal/repository"
	"qvt-engine/internal/scheduler"
	"qvt-engine/internal/scoring"
	"qvt-engine/internal/service"

	"qvt-engine/common/database"
	logpkg "qvt-engine/common/logger"
	redispkg "qvt-engine/common/redis"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "qvt-engine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting qvt-engine service")

	// 数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Redis
	redisClient := redispkg.NewRedisClient(&cfg.Redis)
	if err := redispkg.Ping(context.Background(), redisClient); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redispkg.Close(redisClient)

	// 报警规则（外部 YAML）
	rules, err := evaluator.LoadRules(cfg.Alert.RulesFile)
	if err != nil {
		log.Fatal("Failed to load alert rules",
			zap.String("rules_file", cfg.Alert.RulesFile),
			zap.Error(err),
		)
	}
	log.Info("Alert rules loaded",
		zap.String("rules_file", cfg.Alert.RulesFile),
		zap.Int("rule_count", len(rules)),
	)

	// 报告时区
	reportTZ, err := time.LoadLocation(cfg.Aggregation.ReportTimezone)
	if err != nil {
		log.Fatal("Invalid report timezone",
			zap.String("timezone", cfg.Aggregation.ReportTimezone),
			zap.Error(err),
		)
	}

	// 存储层
	entriesRepo := repository.NewPostgresEntriesRepository(db, cfg.Store.QueryTimeout)
	teamsRepo := repository.NewPostgresTeamsRepository(db, cfg.Store.QueryTimeout)
	alertsRepo := repository.NewPostgresAlertsRepository(db, cfg.Store.QueryTimeout)
	reportsRepo := repository.NewPostgresReportsRepository(db, cfg.Store.QueryTimeout)

	// 引擎
	scorer := scoring.NewScorer(
		cfg.Scoring.TierHighMin,
		cfg.Scoring.TierMediumMin,
		cfg.Scoring.ConfidenceBaseline,
		cfg.Scoring.ConfidenceCommentPenalty,
	)
	bubbles := scoring.NewBubbleAssigner()
	agg := aggregator.NewAggregator(
		cfg.Aggregation.KMin,
		entriesRepo,
		teamsRepo,
		aggregator.NewRedisKVStore(redisClient),
		cfg.Aggregation.CacheKeyPrefix,
		cfg.Aggregation.CacheTTL,
		log,
	)
	eval := evaluator.NewEvaluator(rules, alertsRepo, log)
	exporter := export.NewExporter(agg, teamsRepo, alertsRepo, reportsRepo, log)

	// 措辞协作方（未配置则只用内置文案目录）
	var phraser service.Phraser
	if cfg.Phrasing.BaseURL != "" {
		phraser = service.NewPhrasingClient(cfg.Phrasing.BaseURL, cfg.Phrasing.Timeout, log)
	}

	wellbeing := service.NewWellbeingService(
		entriesRepo,
		scorer,
		bubbles,
		redisClient,
		phraser,
		log,
		cfg.Stream.EntryChanged,
		"fr",
	)

	// HTTP 路由
	router := httpapi.NewRouter(log)
	router.RegisterEntryRoutes(httpapi.NewEntryHandler(wellbeing, log))
	router.RegisterAggregateRoutes(httpapi.NewAggregateHandler(agg, log))
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(alertsRepo, log))
	router.RegisterReportRoutes(httpapi.NewReportHandler(exporter, reportsRepo, log))
	router.RegisterHealthRoute()

	server := service.NewServer(cfg.HTTP.Addr, router, log)

	// 异步管道：事件消费者 + 定时兜底重算
	entryConsumer := consumer.NewEntryConsumer(
		redisClient,
		teamsRepo,
		agg,
		eval,
		log,
		cfg.Stream.EntryChanged,
		cfg.Stream.ConsumerGroup,
		cfg.Stream.ConsumerName,
		10,
		cfg.Aggregation.WindowDays,
	)

	recomputeScheduler := scheduler.NewRecomputeScheduler(
		teamsRepo,
		agg,
		eval,
		log,
		cfg.Scheduler.RecomputeSpec,
		cfg.Aggregation.WindowDays,
		reportTZ,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)

	go func() {
		if err := entryConsumer.Start(ctx); err != nil {
			errChan <- fmt.Errorf("entry consumer: %w", err)
		}
	}()

	if err := recomputeScheduler.Start(); err != nil {
		log.Fatal("Failed to start recompute scheduler", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Service error", zap.Error(err))
	}

	cancel()
	recomputeScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", zap.Error(err))
	}

	log.Info("Service stopped")
}
