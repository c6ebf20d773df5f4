package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/config"
	"github.com/cinehold/reservation-service/internal/database"
	"github.com/cinehold/reservation-service/internal/events"
	"github.com/cinehold/reservation-service/internal/handler"
	"github.com/cinehold/reservation-service/internal/middleware"
	"github.com/cinehold/reservation-service/internal/payment"
	"github.com/cinehold/reservation-service/internal/qr"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/router"
	"github.com/cinehold/reservation-service/internal/seatstore"
	"github.com/cinehold/reservation-service/internal/sweeper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()
	if len(cfg.Gateways) == 0 {
		log.Println("warn: no payment gateways configured (VNPAY_*/WALLET_* env vars absent)")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Printf("fatal: database unreachable: %v", err)
		os.Exit(2)
	}
	defer db.Close()

	redisClient := config.NewRedisClient()
	if redisClient == nil {
		log.Println("warn: redis unreachable; rate limiting and response caching are disabled")
	}

	// Repositories
	cinemaRepo := repository.NewCinemaRepo(db)
	hallRepo := repository.NewHallRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	showtimeRepo := repository.NewShowtimeRepo(db)
	showtimeSeatRepo := repository.NewShowtimeSeatRepo(db)
	seatHoldRepo := repository.NewSeatHoldRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// Core domain
	seatStore := seatstore.New(showtimeSeatRepo, seatHoldRepo, showtimeRepo)

	var notifier booking.ConfirmationNotifier
	var seatPublisher booking.SeatEventPublisher
	if cfg.AMQPURL != "" {
		publisher := events.NewPublisher(cfg.AMQPURL)
		defer publisher.Close()
		notifier = qr.NewNotifier(publisher)
		seatPublisher = publisher
	} else {
		log.Println("warn: no AMQP URL configured; seat-state and booking-confirmed events are disabled")
	}

	bookingEngine := booking.New(bookingRepo, showtimeRepo, seatStore, cfg.HoldTTL, notifier, seatPublisher)

	gateways := make(map[string]payment.Gateway, len(cfg.Gateways))
	gatewayNames := make([]string, 0, len(cfg.Gateways))
	for name, gwCfg := range cfg.Gateways {
		gateways[name] = payment.NewHMACGateway(gwCfg)
		gatewayNames = append(gatewayNames, name)
	}
	paymentCoordinator := payment.NewCoordinator(paymentRepo, bookingRepo, bookingEngine, gateways)

	// Handlers
	ownerHandler := handler.NewOwnerHandler(cinemaRepo, hallRepo, seatRepo, showtimeRepo, showtimeSeatRepo)
	ownerBookingHandler := handler.NewOwnerBookingHandler(bookingRepo, showtimeRepo, bookingEngine, paymentCoordinator)
	bookingHandler := handler.NewBookingHandler(bookingEngine, bookingRepo, seatStore)
	paymentHandler := handler.NewPaymentHandler(paymentCoordinator, cfg.FrontendURL)
	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	publicHandler := &handler.PublicHandler{
		CinemaRepo:   cinemaRepo,
		HallRepo:     hallRepo,
		ShowtimeRepo: showtimeRepo,
	}

	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), redisClient))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), redisClient))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterOwner(e, ownerHandler, cfg.JWTSecret)
	router.RegisterOwnerBookings(e, ownerBookingHandler, cfg.JWTSecret)
	router.RegisterPublic(e, publicHandler)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret)
	router.RegisterPayments(e, paymentHandler, cfg.JWTSecret, gatewayNames)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweep := sweeper.New(bookingRepo, seatStore, bookingEngine, cfg.BookingExpiry, cfg.SweepBookingInterval, cfg.SweepHoldInterval)
	go sweep.Run(ctx)

	if cfg.AMQPURL != "" {
		go runConsumerForever(ctx, "booking.confirmed", func() error {
			return events.StartBookingConfirmedConsumer(cfg.AMQPURL)
		})
		go runConsumerForever(ctx, "seat.state_changed", func() error {
			return events.StartSeatStateConsumer(cfg.AMQPURL)
		})
	}

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("fatal: server exited: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("warn: graceful shutdown error: %v", err)
		os.Exit(1)
	}
}

// runConsumerForever restarts a blocking consumer loop until ctx is
// cancelled; the consumer itself already retries on connection loss, this
// only guards against it returning on a non-reconnectable error.
func runConsumerForever(ctx context.Context, name string, run func() error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := run(); err != nil {
			log.Printf("warn: %s consumer stopped: %v", name, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
