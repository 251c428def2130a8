package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/bonlog/bonlog/internal/pkg/cache"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/env"
	"github.com/bonlog/bonlog/internal/pkg/jobqueue"
	"github.com/bonlog/bonlog/internal/pkg/metrics/counter"
	"github.com/bonlog/bonlog/internal/pkg/router"
)

func main() {
	app := NewApplication()

	queue := setupJobQueue()
	queue.Start()
	defer queue.Stop()

	go schedulePublishTicks(queue)
	go scheduleCounterFlush()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "3000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/bonlog to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 10 * 1024 * 1024,
	})

	// ignore and cache favicon
	app.Use(favicon.New(favicon.Config{
		File:         basePath + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// ROUTER
	router.InstallRouter(app)

	return app
}

func setupJobQueue() *jobqueue.Queue {
	db := database.GetDB()

	queue := jobqueue.NewQueue(env.GetEnvInt("JOB_WORKERS", 2))
	queue.Register(jobqueue.JobTypeNotification, jobqueue.NewNotificationProcessor(db).Handle)
	queue.Register(jobqueue.JobTypePublishPost, jobqueue.NewPublishPostProcessor(db).Handle)
	queue.Register(jobqueue.JobTypeActivationMail, jobqueue.NewActivationMailProcessor().Handle)
	jobqueue.SetGlobalQueue(queue)

	return queue
}

// schedulePublishTicks enqueues a publish job every minute so scheduled
// posts go live close to their chosen time.
func schedulePublishTicks(queue *jobqueue.Queue) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := queue.Enqueue(jobqueue.JobTypePublishPost, nil); err != nil {
			log.Printf("[Scheduler] enqueue publish tick failed: %v", err)
		}
	}
}

// scheduleCounterFlush moves batched Redis view counters into MySQL.
func scheduleCounterFlush() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		if err := counter.FlushAll(); err != nil {
			log.Printf("[Scheduler] counter flush failed: %v", err)
		}
	}
}
