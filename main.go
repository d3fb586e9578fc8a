package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"relay-service/internal/config"
	"relay-service/internal/db"
	"relay-service/internal/fanout"
	"relay-service/internal/handlers"
	"relay-service/internal/middleware"
	"relay-service/internal/observability"
	"relay-service/internal/poll"
	"relay-service/internal/rabbitmq"
	"relay-service/internal/repositories"
	"relay-service/internal/telemetry"
)

const serviceName = "relay-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Env)
	if err != nil {
		sugar.Fatalf("setup tracing: %v", err)
	}

	database, err := db.Open(cfg.DataDir, cfg.InMemory, sugar)
	if err != nil {
		sugar.Fatalf("open store: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, sugar)
	audit := telemetry.NewAuditEmitter(publisher, "relay.audit", serviceName, cfg.Env, sugar)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	fileRepo := repositories.NewFileRepo(database, cfg.MaxFileSizeBytes)
	notificationRepo := repositories.NewNotificationRepo(database)

	events := fanout.New(roomRepo, notificationRepo, publisher, sugar, cfg.FanoutQueueSize)
	events.Start(context.Background())

	tracker := poll.NewTracker(cfg.PollSessionTTL)
	go tracker.Run()

	authHandler := handlers.NewAuthHandler(userRepo, audit)
	roomHandler := handlers.NewRoomHandler(roomRepo, messageRepo, userRepo, events, audit)
	pollHandler := handlers.NewPollHandler(roomRepo, messageRepo, notificationRepo, userRepo, tracker, cfg)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	fileHandler := handlers.NewFileHandler(fileRepo, roomRepo, messageRepo, userRepo, events, audit)
	statusHandler := handlers.NewStatusHandler(publisher, tracker, serviceName)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.RequestLogger(sugar))

	router.POST("/api/users/register", authHandler.Register)
	router.POST("/api/users/login", authHandler.Login)
	router.GET("/api/users/:id", authHandler.GetUser)
	router.POST("/api/users/:id/active", authHandler.SetActive)

	router.GET("/api/rooms", roomHandler.ListRooms)
	router.POST("/api/rooms", roomHandler.CreateRoom)
	router.GET("/api/rooms/:name", roomHandler.GetRoom)
	router.POST("/api/rooms/:name/join", roomHandler.JoinRoom)
	router.POST("/api/rooms/:name/leave", roomHandler.LeaveRoom)
	router.GET("/api/rooms/:name/poll", pollHandler.Poll)

	router.GET("/api/messages/:room_name", roomHandler.GetMessages)
	router.POST("/api/send-message", roomHandler.SendMessage)

	router.GET("/api/notifications", notificationHandler.List)
	router.POST("/api/notifications/:id/mark_read", notificationHandler.MarkRead)
	router.POST("/api/notifications/mark_all_read", notificationHandler.MarkAllRead)
	router.DELETE("/api/notifications/:id", notificationHandler.Delete)

	router.POST("/api/files/upload", fileHandler.Upload)
	router.GET("/api/files/:id/download", fileHandler.Download)
	router.GET("/api/files", fileHandler.List)

	router.GET("/api/gateway/status", statusHandler.GatewayStatus)
	router.GET("/healthz", statusHandler.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugEndpoints)

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 10 * time.Second,
	}

	idleClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		sugar.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			sugar.Errorf("server shutdown: %v", err)
		}
		close(idleClosed)
	}()

	sugar.Infow("relay listening", "addr", cfg.Addr(), "broker", rabbitmq.Mode(publisher), "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("server error: %v", err)
	}
	<-idleClosed

	tracker.Stop()
	events.Stop()
	if err := publisher.Close(); err != nil {
		sugar.Warnf("close publisher: %v", err)
	}
	if err := database.Close(); err != nil {
		sugar.Errorf("close store: %v", err)
	}
	if err := shutdownTracing(context.Background()); err != nil {
		sugar.Warnf("shutdown tracing: %v", err)
	}
	sugar.Info("relay stopped")
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
