package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Abraxas-365/docqueue/pkg/config"
	"github.com/Abraxas-365/docqueue/pkg/container"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxapi"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	logx.Info("Starting docqueue API server...")

	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, container.Options{Workers: cfg.Jobx.InlineWorkers})
	if err != nil {
		logx.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Cleanup()

	app := newApp(cfg, c)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logx.Infof("Server listening on port %s", cfg.Server.Port)
		return app.Listen(":" + cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Shutting down HTTP server...")
		return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
	})
	if cfg.Jobx.InlineWorkers {
		pool := c.NewPool()
		g.Go(func() error { return pool.Start(gctx) })
	} else {
		logx.Info("Inline workers disabled; run cmd/worker to process jobs")
	}

	if err := g.Wait(); err != nil {
		logx.Errorf("Server stopped with error: %v", err)
		return
	}
	logx.Info("Server exited successfully")
}

func newApp(cfg *config.Config, c *container.Container) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "docqueue",
		DisableStartupMessage: true,
		ErrorHandler:          jobxapi.ErrorHandler,
		BodyLimit:             int(cfg.Storage.MaxUploadBytes) + 1<<20,
		ReadTimeout:           cfg.Server.ReadTimeout,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Server.Debug}))
	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${respHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	c.APIHandlers().RegisterRoutes(app)
	c.AnalysisHandlers().RegisterRoutes(app)

	app.Use(func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"code":       "NOT_FOUND",
			"message":    "The requested endpoint does not exist",
			"path":       ctx.Path(),
			"method":     ctx.Method(),
			"request_id": ctx.Get(fiber.HeaderXRequestID),
		})
	})

	return app
}
