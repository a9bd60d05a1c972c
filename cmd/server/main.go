package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dreamweaver/internal/config"
	"dreamweaver/internal/database"
	"dreamweaver/internal/handlers"
	"dreamweaver/internal/logging"
	"dreamweaver/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Dream Weaver Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Storage: %s)", cfg.Port, cfg.StoragePath)

	if cfg.ProviderAPIKey == "" {
		log.Println("⚠️  PROVIDER_API_KEY not set - annotation calls will be rejected by the provider")
	}

	// Open persistence (SQLite for *.db paths, JSON file otherwise)
	store, err := database.Open(cfg.StoragePath)
	if err != nil {
		log.Fatalf("❌ Failed to open storage: %v", err)
	}
	defer store.Close()

	// Initialize services
	dreamStore := services.NewDreamStore(store)
	log.Printf("✅ Dream store initialized (%d dreams)", len(dreamStore.List()))

	annotationService := services.NewAnnotationService(cfg)
	if cfg.PromptsFile != "" {
		if prompts, err := config.LoadPrompts(cfg.PromptsFile); err != nil {
			log.Printf("⚠️  Failed to load prompts file, using defaults: %v", err)
		} else {
			annotationService.UpdatePrompts(*prompts)
			log.Printf("✅ Prompt templates loaded from %s", cfg.PromptsFile)
		}
		go startPromptsFileWatcher(cfg.PromptsFile, annotationService)
	}

	entryWorkflow := services.NewEntryWorkflow(annotationService, dreamStore)
	log.Println("✅ Entry workflow initialized")

	// Initialize Prometheus metrics
	services.InitMetrics()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dream Weaver v1.0",
		ReadTimeout:  2 * time.Minute, // annotation calls can be slow
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    1 * 1024 * 1024, // dreams are text, 1MB is generous
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("dreamweaver")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Handlers
	dreamHandler := handlers.NewDreamHandler(dreamStore)
	entryHandler := handlers.NewEntryHandler(entryWorkflow, 2*cfg.AnnotationTimeout)

	// Rate limiter for the analyze endpoint (expensive LLM operation)
	analyzeLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many analysis requests, please wait",
			})
		},
	})

	// Routes
	app.Get("/health", handlers.Health)

	api := app.Group("/api/v1")
	api.Get("/dreams", dreamHandler.ListDreams)
	api.Post("/dreams/analyze", analyzeLimiter, entryHandler.Analyze)
	api.Post("/dreams/confirm", entryHandler.Confirm)
	api.Post("/dreams/discard", entryHandler.Discard)
	api.Get("/dreams/:id", dreamHandler.GetDream)
	api.Put("/dreams/:id", dreamHandler.UpdateDream)
	api.Delete("/dreams/:id", dreamHandler.DeleteDream)

	log.Printf("🌐 API: http://localhost:%s/api/v1/dreams", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// startPromptsFileWatcher watches the prompts file for changes and hot-reloads
func startPromptsFileWatcher(filePath string, annotationService *services.AnnotationService) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					log.Printf("🔄 Detected changes in %s, reloading prompts...", filePath)

					prompts, err := config.LoadPrompts(filePath)
					if err != nil {
						log.Printf("❌ Failed to reload prompts after file change: %v", err)
						return
					}
					annotationService.UpdatePrompts(*prompts)
					log.Printf("✅ Prompts reloaded from %s", filePath)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  File watcher error: %v", err)
		}
	}
}
