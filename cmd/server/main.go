package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/framecast/render-gateway/internal/client"
	"github.com/framecast/render-gateway/internal/compute"
	"github.com/framecast/render-gateway/internal/config"
	"github.com/framecast/render-gateway/internal/handler"
	"github.com/framecast/render-gateway/internal/middleware"
	"github.com/framecast/render-gateway/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client (rate limiting only — optional)
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis not available, rate limiting disabled: %v", err)
		}
	}

	// Initialize validator
	validate := validator.New()

	// Initialize storage client (optional - streaming relay degrades to
	// STORAGE_WRITE_FAILED without it, manifest path is unaffected)
	var storageClient client.StorageClient
	if cfg.Storage.HasCredentials() {
		r2Client, err := client.NewR2Client(&cfg.Storage)
		if err != nil {
			log.Printf("Warning: storage client not initialized: %v", err)
		} else {
			storageClient = r2Client
		}
	} else {
		log.Println("Info: object storage not configured, worker self-upload unavailable")
	}

	// Resolve worker instances through the machines API when configured,
	// otherwise hit the static worker URL directly
	var launcher compute.Launcher
	if cfg.Compute.APIBase != "" {
		machinesClient := compute.NewMachinesClient(&cfg.Compute)
		launcher = compute.NewMachinesLauncher(machinesClient, &cfg.Compute)
		log.Printf("Info: machines API at %s manages worker %q", cfg.Compute.APIBase, cfg.Compute.MachineName)
	} else {
		launcher = &compute.StaticLauncher{URL: cfg.Compute.WorkerURL}
		log.Printf("Info: using static worker URL %s", cfg.Compute.WorkerURL)
	}

	budget := time.Duration(cfg.Compute.RequestBudgetSec) * time.Second
	computeManager := compute.NewManager(launcher, cfg.Compute.MachineName, budget)

	// Initialize services
	renderService := service.NewRenderService(computeManager, storageClient, cfg.Storage.BucketName, cfg.Storage.PublicBaseURL)

	// Initialize handlers
	renderHandler := handler.NewRenderHandler(renderService, validate, &cfg.Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Liveness probe
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   "render-gateway",
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"storage":  storageClient != nil,
				"machines": cfg.Compute.APIBase != "",
				"auth":     cfg.Auth.Secret != "",
			},
		})
	})

	// Render endpoint
	app.Post("/render",
		authMiddleware.Authenticate(),
		rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour),
		renderHandler.Render,
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "SERVICE_ERROR",
		"message": message,
	})
}
