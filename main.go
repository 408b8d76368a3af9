package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/conformd/conformd/audit"
	"github.com/conformd/conformd/config"
	"github.com/conformd/conformd/controller"
	"github.com/conformd/conformd/dao"
	"github.com/conformd/conformd/db"
	"github.com/conformd/conformd/engine"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/mapper"
	"github.com/conformd/conformd/registry"
	"github.com/conformd/conformd/report"
	"github.com/conformd/conformd/router"
	"github.com/conformd/conformd/service"
	"github.com/conformd/conformd/snapshot"
	"github.com/conformd/conformd/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()
	cacheService := util.NewCacheService()
	notificationService := util.NewNotificationService()
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize Elasticsearch audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)

	// Initialize DAOs
	standardDAO := dao.NewStandardDAO(db.Neo4jDriver, auditService)
	ruleDAO := dao.NewRuleDAO(db.Neo4jDriver, auditService)

	// Core evaluation components
	reg := registry.New()
	ruleMapper := mapper.New(reg)
	evaluator, err := engine.NewEvaluator(
		config.GetInt("evaluator.workers"),
		config.GetDuration("evaluator.cacheTTL"),
	)
	if err != nil {
		logger.Fatal("Failed to initialize evaluator", zap.Error(err))
	}
	reportBuilder := report.NewBuilder(reg)

	var snapshotProvider snapshot.Provider
	if url := config.GetString("snapshot.url"); url != "" {
		snapshotProvider = snapshot.NewHTTPProvider(url, config.GetDuration("snapshot.timeout"))
	} else {
		snapshotProvider = snapshot.NewStaticProvider(nil)
	}

	// Initialize services
	standardService := service.NewStandardService(
		standardDAO,
		reg,
		validationUtil,
		cacheService,
		notificationService,
		eventBus,
	)
	ruleService := service.NewRuleService(
		ruleDAO,
		ruleMapper,
		validationUtil,
		cacheService,
		notificationService,
		eventBus,
	)
	evaluationService := service.NewEvaluationService(
		ruleMapper,
		evaluator,
		reportBuilder,
		snapshotProvider,
		validationUtil,
		cacheService,
		notificationService,
		auditService,
		eventBus,
		config.GetDuration("report.ttl"),
	)

	services := &service.Services{
		Standard:   standardService,
		Rule:       ruleService,
		Evaluation: evaluationService,
	}

	// Load bundled standard packs, then overlay whatever is in Neo4j.
	if dir := config.GetString("standards.dir"); dir != "" {
		if err := reg.LoadDir(dir); err != nil {
			logger.Warn("Failed to load standard packs", zap.String("dir", dir), zap.Error(err))
		}
	}
	if err := standardService.HydrateRegistry(ctx); err != nil {
		logger.Fatal("Failed to hydrate standard registry", zap.Error(err))
	}
	if err := ruleService.HydrateMapper(ctx); err != nil {
		logger.Fatal("Failed to hydrate rule mapper", zap.Error(err))
	}

	// Initialize controllers
	controllers := controller.InitializeControllers(services)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engineRouter := router.SetupRouter(controllers, 100, time.Minute) // 100 requests per minute

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engineRouter,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
