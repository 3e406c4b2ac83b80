package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Inventario-pos/internal/application/notification"
	"github.com/jhoicas/Inventario-pos/internal/application/ports"
	"github.com/jhoicas/Inventario-pos/internal/bootstrap"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/kafka"
	"github.com/jhoicas/Inventario-pos/internal/infrastructure/ws"
	httpRouter "github.com/jhoicas/Inventario-pos/internal/interfaces/http"
	"github.com/jhoicas/Inventario-pos/pkg/config"
	"github.com/jhoicas/Inventario-pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET requerido")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg, log.Component("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer storage.Close()

	coord, err := bootstrap.OpenCoordination(ctx, cfg.Redis, log.Component("redis"))
	if err != nil {
		log.Fatal().Err(err).Msg("coordinación")
	}
	defer coord.Close()

	// Notificaciones: log + websocket por tenant + Kafka (si hay brokers)
	hub := ws.NewHub(log.Zerolog())
	go hub.Run(ctx)
	sinks := []ports.Notifier{notification.NewLogSink(log.Component("notifications")), hub}
	if cfg.Kafka.Enabled() {
		writer := kafka.NewWriter(cfg.Kafka)
		defer func() { _ = writer.Close() }()
		sinks = append(sinks, kafka.NewNotificationSink(writer))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("notificaciones a Kafka")
	}
	notifier := notification.NewFanout(sinks...)

	svc := bootstrap.NewServices(storage, coord, notifier, cfg.Reorder, log.Zerolog())
	svc.Dispatcher.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs (solo si existe el archivo generado)
	if _, err := os.Stat(cfg.Swagger.FilePath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.Swagger.FilePath,
			Path:     cfg.Swagger.Path,
			Title:    "Inventario POS API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:         svc.Ledger,
		Stock:          svc.Stock,
		Batches:        svc.Batches,
		PurchaseOrders: svc.PurchaseOrders,
		Settings:       svc.Settings,
		Audit:          svc.Audit,
		ReorderCheck:   svc.ReorderCheck,
		Hub:            hub,
		JWTSecret:      cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// Los eventos de stock ya encolados se procesan antes de cerrar la base.
	if err := svc.Dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del detector de stock bajo")
	}
	stop()

	log.Info().Msg("aplicación detenida")
}
