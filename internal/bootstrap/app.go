package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httphandler "github.com/baijianruoli/bot-chat/internal/handler/http"
	wshandler "github.com/baijianruoli/bot-chat/internal/handler/websocket"
	gormpersistence "github.com/baijianruoli/bot-chat/internal/infra/persistence/gorm"
	"github.com/baijianruoli/bot-chat/internal/infra/setup"
	redisstate "github.com/baijianruoli/bot-chat/internal/infra/state/redis"
	"github.com/baijianruoli/bot-chat/internal/hub"
	"github.com/baijianruoli/bot-chat/internal/middleware"
	"github.com/baijianruoli/bot-chat/internal/repository"
	"github.com/baijianruoli/bot-chat/internal/service"
	"github.com/baijianruoli/bot-chat/internal/tasks"
	"github.com/baijianruoli/bot-chat/internal/worker"
)

// App 持有进程的全部组件，按依赖顺序组装和关闭。
type App struct {
	cfg *Config

	db          *gorm.DB
	redisClient *redis.Client
	stateRepo   repository.StateRepository

	authService *service.AuthService
	roomService *service.RoomService
	chatService *service.ChatService

	hub       *hub.Hub
	taskQueue *tasks.Queue
	worker    *worker.Server

	httpServer *http.Server
}

// NewApp 连接存储、组装服务并构建路由。
func NewApp(cfg *Config) (*App, error) {
	configureLogging(cfg.LogLevel)

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	msgRepo := gormpersistence.NewGormMessageRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, "botchat:")

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	roomService := service.NewRoomService(roomRepo)
	chatService := service.NewChatService(msgRepo, roomRepo, userRepo, stateRepo)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	taskQueue := tasks.NewQueue(asynq.NewClient(redisOpt))

	h := hub.NewHub(hub.NewRegistry(), chatService, roomService, taskQueue)

	workerSrv := worker.NewServer(redisOpt, worker.NewHandlers(stateRepo, h.Presence()))

	app := &App{
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		stateRepo:   stateRepo,
		authService: authService,
		roomService: roomService,
		chatService: chatService,
		hub:         h,
		taskQueue:   taskQueue,
		worker:      workerSrv,
	}
	app.httpServer = &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: app.buildRouter(),
	}
	return app, nil
}

// Start 启动后台 worker 和 HTTP 服务，阻塞到服务退出。
func (a *App) Start() error {
	if err := a.worker.Start(); err != nil {
		return err
	}

	logrus.WithField("port", a.cfg.ServerPort).Info("HTTP server starting")
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown 按依赖的逆序优雅关闭：先停新请求，再停投递中枢，最后停后台任务和存储。
func (a *App) Shutdown(ctx context.Context) {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown error")
	}
	a.hub.Stop()
	a.worker.Shutdown()
	if err := a.taskQueue.Close(); err != nil {
		logrus.WithError(err).Warn("Task queue close error")
	}
	if err := a.redisClient.Close(); err != nil {
		logrus.WithError(err).Warn("Redis close error")
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	logrus.Info("Shutdown complete")
}

func (a *App) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), loggerMiddleware(), corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := httphandler.NewAuthHandler(a.authService)
	roomHandler := httphandler.NewRoomHandler(a.roomService, a.hub.Presence())
	messageHandler := httphandler.NewMessageHandler(a.chatService, a.hub)
	wsHandler := wshandler.NewHandler(a.hub, a.authService)

	rateLimit := middleware.RateLimit(a.stateRepo, a.cfg.RateLimitPerMin, time.Minute)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(rateLimit)
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		authed := v1.Group("")
		authed.Use(middleware.JWTAuth(a.authService), rateLimit)
		{
			authed.POST("/rooms", roomHandler.Create)
			authed.GET("/rooms", roomHandler.List)
			authed.GET("/rooms/:room_id", roomHandler.Get)
			authed.POST("/rooms/:room_id/join", roomHandler.Join)
			authed.POST("/rooms/:room_id/leave", roomHandler.Leave)
			authed.POST("/messages", messageHandler.Send)
			authed.GET("/messages", messageHandler.History)
		}
	}

	router.GET("/ws", wsHandler.Serve)
	return router
}

func configureLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// loggerMiddleware 按请求输出结构化访问日志。
func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("Request handled")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
