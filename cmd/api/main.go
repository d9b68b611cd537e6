package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/api/handlers"
	"github.com/girijasivakumar242/IARS/internal/auth"
	"github.com/girijasivakumar242/IARS/internal/cache/redis"
	"github.com/girijasivakumar242/IARS/internal/metrics"
	authmw "github.com/girijasivakumar242/IARS/internal/middleware/auth"
	"github.com/girijasivakumar242/IARS/internal/middleware/ratelimit"
	"github.com/girijasivakumar242/IARS/internal/middleware/security"
	"github.com/girijasivakumar242/IARS/internal/notify"
	"github.com/girijasivakumar242/IARS/internal/scoring"
	"github.com/girijasivakumar242/IARS/internal/storage/sqlite"
	"github.com/girijasivakumar242/IARS/internal/students"
	"github.com/girijasivakumar242/IARS/pkg/config"
	appLogger "github.com/girijasivakumar242/IARS/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting IARS API server")

	metrics.Init()

	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		blacklist = redisClient
	}

	scorer := buildScorer(cfg.Scorer)
	hub := notify.NewHub()
	engine := students.NewEngine(db, scorer, hub)
	authSvc := auth.NewService(db, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, blacklist)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		metrics.RequestsTotal.WithLabelValues(c.Path(), strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
	})
	defer limiter.Stop()

	authHandler := handlers.NewAuthHandler(authSvc)
	studentsHandler := handlers.NewStudentsHandler(engine)
	wsHandler := handlers.NewWebSocketHandler(hub)

	api := app.Group("/api")

	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/logout", authmw.Middleware(authSvc), authHandler.Logout)

	studentsAPI := api.Group("/students", authmw.Middleware(authSvc), limiter.Middleware())
	studentsAPI.Get("/", studentsHandler.ListStudents)
	studentsAPI.Post("/add", studentsHandler.AddStudent)
	studentsAPI.Post("/upload", studentsHandler.UploadStudentSheet)
	studentsAPI.Get("/analytics/summary", studentsHandler.GetAnalyticsSummary)
	studentsAPI.Put("/:id", studentsHandler.UpdateStudent)
	studentsAPI.Delete("/:id", studentsHandler.DeleteStudent)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

func buildScorer(cfg config.ScorerConfig) scoring.Scorer {
	if cfg.Mode == "builtin" {
		appLogger.Info("Using builtin heuristic scorer")
		return scoring.NewHeuristicScorer()
	}

	appLogger.Info("Using external process scorer",
		zap.String("command", cfg.Command),
		zap.String("script", cfg.Script),
		zap.Int("timeout_sec", cfg.TimeoutSec),
	)
	return scoring.NewProcessScorer(cfg.Command, cfg.Script, time.Duration(cfg.TimeoutSec)*time.Second)
}
