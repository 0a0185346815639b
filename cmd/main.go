package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/cart"
	"github.com/suteetoe/storecore/internal/catalog"
	"github.com/suteetoe/storecore/internal/checkout"
	"github.com/suteetoe/storecore/internal/clock"
	"github.com/suteetoe/storecore/internal/handler"
	"github.com/suteetoe/storecore/internal/inventory"
	mid "github.com/suteetoe/storecore/internal/middleware"
	"github.com/suteetoe/storecore/internal/order"
	"github.com/suteetoe/storecore/internal/repository/gormstore"
	"github.com/suteetoe/storecore/internal/storage"
	"github.com/suteetoe/storecore/pkg/config"
	"github.com/suteetoe/storecore/pkg/database"
	"github.com/suteetoe/storecore/pkg/jwtutil"
	"github.com/suteetoe/storecore/pkg/logger"
	"github.com/suteetoe/storecore/prometheus"
)

const serviceName = "storecore"

func main() {
	appConfig, err := config.Load(serviceName)
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting "+serviceName, appConfig.LogFields()...)

	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close(db)
	if appConfig.DB.AutoMigrate {
		if err := database.MigrateModels(db, gormstore.Models()...); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	store := gormstore.New(db)

	metrics := prometheus.NewMetrics(appConfig.Metrics.Prefix, promclient.DefaultRegisterer)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	files := storage.NewLocal(storage.Config{
		Dir:       appConfig.Storage.UploadDir,
		BaseURL:   appConfig.Storage.BaseURL,
		PublicDir: appConfig.Storage.PublicDir,
	})
	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	})

	ledger := inventory.NewLedger(store, metrics)
	h := handler.New(
		catalog.NewService(store, files, metrics),
		ledger,
		cart.NewService(store, metrics),
		checkout.NewService(store, ledger, metrics),
		order.NewService(store, ledger, clock.System{}, metrics),
	)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(metrics.Middleware())

	e.GET("/metrics", echo.WrapHandler(prometheus.Handler(promclient.DefaultGatherer)))
	e.GET("/health", handler.HealthCheck)
	e.Static("/"+strings.Trim(appConfig.Storage.PublicDir, "/"), appConfig.Storage.UploadDir)

	h.Register(e, mid.JWTAuthMiddleware(jwtUtil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		port := appConfig.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
