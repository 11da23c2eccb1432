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
	_ "github.com/jhoicas/inventory-ledger/docs"
	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/bootstrap"
	infraredis "github.com/jhoicas/inventory-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventory-ledger/internal/interfaces/ws"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Ledger.StorageDriver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer storage.Close()

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	// Sin Redis el hub recibe los eventos directamente; con Redis todas las instancias
	// publican en el canal y cada una reenvía a sus clientes WS.
	var publisher alerting.Publisher = hub
	if cfg.Redis.Enabled() {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		stream := infraredis.NewNotificationStream(client, cfg.Redis.Channel, log)
		publisher = stream
		go func() {
			if err := stream.Subscribe(ctx, hub.Broadcast); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("suscripción Redis finalizada")
			}
		}()
	}

	services := bootstrap.NewServices(storage, cfg.Ledger, publisher, log)

	sweeper := alerting.NewSweeper(services.Engine, services.Projector, cfg.Ledger.SweepInterval, log)
	sweeper.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventory Ledger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		LocationUC: services.Locations,
		ItemUC:     services.Items,
		Ledger:     services.Ledger,
		Projector:  services.Projector,
		Alerts:     services.Engine,
		Gateway:    services.Gateway,
		Hub:        hub,
		JWTSecret:  cfg.JWT.Secret,
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
	sweeper.Stop()
	stop()

	log.Info().Msg("aplicación detenida")
}
