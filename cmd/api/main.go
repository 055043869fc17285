package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lunarbtc/moon-analyzer/internal/api"
	"github.com/lunarbtc/moon-analyzer/internal/config"
	"github.com/lunarbtc/moon-analyzer/internal/ingestion"
	"github.com/lunarbtc/moon-analyzer/internal/service"
	"github.com/lunarbtc/moon-analyzer/internal/storage/memstore"
	pkglogger "github.com/lunarbtc/moon-analyzer/pkg/logger"
)

// @title Moon Analyzer API
// @version 1.0
// @description API correlating lunar phases with Bitcoin daily price-range volatility

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg := config.Load()

	if err := pkglogger.Init(cfg.LogLevel, cfg.Environment == "development"); err != nil {
		log.Fatal("logger init failed:", err)
	}
	defer pkglogger.Close()

	store := memstore.New()

	parser := ingestion.NewParser(cfg.BatchSize, cfg.Workers)
	ingestionService := service.NewIngestionService(parser, store, cfg.MoonPath(), cfg.PricePath())

	aggregationService := service.NewAggregationService(store)
	chartService := service.NewChartService(aggregationService)
	datasetService := service.NewDatasetService(store)

	// One-shot startup load. A failure is not fatal: the server comes
	// up, /ready reports not-ready and data routes answer 503 until an
	// admin reload succeeds.
	loadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if result, err := ingestionService.LoadAll(loadCtx); err != nil {
		pkglogger.Sugar.Warnf("dataset load failed: %v (serving without data)", err)
	} else {
		pkglogger.Sugar.Infof("datasets loaded: %d moon rows, %d price rows", result.MoonRows, result.PriceRows)
	}
	cancel()

	handler := api.NewHandler(
		cfg,
		store,
		aggregationService,
		chartService,
		datasetService,
		ingestionService,
	)

	app := fiber.New(fiber.Config{
		Prefork:               false,
		ServerHeader:          "Moon-Analyzer",
		DisableStartupMessage: false,
		AppName:               "Moon Analyzer v1.0.0",
		ReadTimeout:           cfg.APIReadTimeout,
		WriteTimeout:          cfg.APIWriteTimeout,
		IdleTimeout:           120 * time.Second,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
		ProxyHeader:           "X-Forwarded-For",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api.SetupRoutes(app, handler)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		pkglogger.Sugar.Info("shutting down server")
		if err := app.Shutdown(); err != nil {
			pkglogger.Sugar.Errorf("server shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	pkglogger.Sugar.Infof("starting server on %s", addr)

	if err := app.Listen(addr); err != nil {
		pkglogger.Sugar.Fatalf("server error: %v", err)
	}
}
