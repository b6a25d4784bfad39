package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/config"
	"soofia-clockbook/app/database"
	attendanceRoutes "soofia-clockbook/app/routes/attendance"
	"soofia-clockbook/app/routes/auth"
	"soofia-clockbook/app/routes/teachers"
	"soofia-clockbook/app/services"
	"soofia-clockbook/app/templates"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// customErrorHandler renders every unhandled error as JSON
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Status code defaults to 500
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a *fiber.Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)
	config.SetupTimezone(cfg.Timezone)
	auth.SetSecret(cfg.JWTSecret)

	store, db := openStore(cfg)
	if db != nil {
		defer db.Close()
	}

	reconciler := attendance.NewReconciler(store)
	roster := attendance.NewTeachers(store)

	// Start background scheduler
	scheduler, err := services.StartScheduler(reconciler, cfg.PurgeSchedule, cfg.RetentionWeeks)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Initialize template engine
	engine := html.NewFileSystem(http.FS(templates.FS), ".html")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		Views:                 engine,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("X-Request-ID", id)
		ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "OK", "store": cfg.StoreDriver}
		if db != nil {
			if err := db.PingContext(c.UserContext()); err != nil {
				status["status"] = "DOWN"
				status["error"] = err.Error()
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
		}
		return c.JSON(status)
	})

	// Setup teachers routes
	teachers.SetupTeachersRoutes(app, roster)

	// Setup attendance routes
	attendanceRoutes.SetupAttendanceRoutes(app, reconciler)

	// Catch-all route for 404 errors (must be last)
	app.Use("*", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route not found")
	})

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Warn("Forced shutdown")
	}
}

// openStore picks the attendance store from STORE_DRIVER. The returned *sql.DB
// is nil for the in-memory store.
func openStore(cfg *config.Config) (attendance.Store, *sql.DB) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		return database.NewMemoryStore(), nil
	case config.DriverPostgres:
		db, err := config.OpenDB(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.RunMigrations(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		return database.NewPostgresStore(db), db
	}
	log.Fatalf("Unknown STORE_DRIVER %q", cfg.StoreDriver)
	return nil, nil
}
