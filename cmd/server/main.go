package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/booking"
	"github.com/merobus/merobus-backend/internal/config"
	"github.com/merobus/merobus-backend/internal/database"
	"github.com/merobus/merobus-backend/internal/handler"
	"github.com/merobus/merobus-backend/internal/live"
	"github.com/merobus/merobus-backend/internal/logging"
	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/observability"
	"github.com/merobus/merobus-backend/internal/payment"
	"github.com/merobus/merobus-backend/internal/queue"
	"github.com/merobus/merobus-backend/internal/repository"
	"github.com/merobus/merobus-backend/internal/router"
	queue_publisher "github.com/merobus/merobus-backend/internal/service"
	"github.com/merobus/merobus-backend/internal/trip"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	routes := repository.NewRouteRepo(db)
	bookings := repository.NewBookingRepo(db)
	perf := repository.NewPerformanceRepo(db)
	notifications := repository.NewNotificationRepo(db)
	payments := repository.NewPaymentRepo(db)

	hub := live.NewHub(logger)
	hub.SetConnectionHooks(
		func() { observability.LiveConnections.Inc() },
		func() { observability.LiveConnections.Dec() },
	)
	notifier := live.NewNotifier(notifications, hub, logger)

	var khalti *payment.KhaltiClient
	if cfg.KhaltiSecret != "" {
		khalti = payment.NewKhalti(cfg.KhaltiSecret, "")
	} else {
		logger.Warn("KHALTI_SECRET_KEY not set, payments disabled")
	}

	var events booking.EventPublisher
	if cfg.AMQPURL != "" {
		events = queue_publisher.New(cfg.AMQPURL)
		go func() {
			if err := queue.StartBookingConsumer(cfg.AMQPURL); err != nil {
				logger.Error("booking consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set, booking events disabled")
	}

	coordinator := &booking.Coordinator{
		Ledger:   bookings,
		Bookings: bookings,
		Payments: payments,
		Notifier: notifier,
		Events:   events,
		Logger:   logger,
	}
	if khalti != nil {
		coordinator.Provider = khalti
	}
	aggregator := trip.NewAggregator(vehicles, perf, logger)

	e := echo.New()
	e.HideBanner = true

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable, rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens),
		Vehicles:      handler.NewVehicleHandler(vehicles, routes, bookings, perf),
		Routes:        handler.NewRouteHandler(vehicles, routes, hub),
		Bookings:      handler.NewBookingHandler(coordinator, bookings, vehicles),
		Payments:      handler.NewPaymentHandler(coordinator, khalti, cfg.KhaltiReturnURL),
		Trips:         handler.NewTripHandler(aggregator, vehicles, perf),
		Notifications: handler.NewNotificationHandler(notifications),
		Live:          handler.NewLiveHandler(hub, cfg.JWTSecret),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
