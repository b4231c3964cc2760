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

	"github.com/cardlyhq/cardly/audit"
	"github.com/cardlyhq/cardly/cache"
	"github.com/cardlyhq/cardly/config"
	"github.com/cardlyhq/cardly/controller"
	"github.com/cardlyhq/cardly/dao"
	"github.com/cardlyhq/cardly/db"
	"github.com/cardlyhq/cardly/invoker"
	logger "github.com/cardlyhq/cardly/logging"
	"github.com/cardlyhq/cardly/permission"
	"github.com/cardlyhq/cardly/router"
	"github.com/cardlyhq/cardly/service"
	"github.com/cardlyhq/cardly/subscription"
	"github.com/cardlyhq/cardly/util"
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

	// Initialize audit pipeline
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditService := audit.NewService(auditRepository)
	audit.NewDispatcher(auditService, eventBus)

	// Initialize decision cache and invoker. The cache is an explicit
	// instance owned here, not a package-level singleton.
	decisionCache := cache.New()
	serviceInvoker := invoker.New(decisionCache, "cardly")
	enterpriseClient := invoker.NewEnterpriseClient(
		config.GetString("enterprise.baseURL"),
		config.GetString("enterprise.token"),
		config.GetDuration("enterprise.timeout"),
	)

	// Initialize DAOs
	userDAO := dao.NewUserDAO(db.Neo4jDriver)

	// Initialize services
	resolver := permission.NewResolver(userDAO)
	gate := subscription.NewGate(userDAO, eventBus)
	accessService := service.NewAccessService(
		userDAO,
		resolver,
		gate,
		serviceInvoker,
		enterpriseClient,
		auditService,
		eventBus,
	)

	// Initialize controllers
	controllers := &controller.Controllers{
		Access: controller.NewAccessController(accessService),
	}

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(controllers, 100, time.Minute) // 100 requests per minute

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
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
