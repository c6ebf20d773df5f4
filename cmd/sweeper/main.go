package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/config"
	"github.com/cinehold/reservation-service/internal/database"
	"github.com/cinehold/reservation-service/internal/events"
	"github.com/cinehold/reservation-service/internal/qr"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/seatstore"
	"github.com/cinehold/reservation-service/internal/sweeper"
)

// Standalone entrypoint running only the expiry sweeper, for deployments
// that want it scaled and restarted independently of the HTTP process.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Printf("fatal: database unreachable: %v", err)
		os.Exit(2)
	}
	defer db.Close()

	showtimeRepo := repository.NewShowtimeRepo(db)
	showtimeSeatRepo := repository.NewShowtimeSeatRepo(db)
	seatHoldRepo := repository.NewSeatHoldRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	seatStore := seatstore.New(showtimeSeatRepo, seatHoldRepo, showtimeRepo)

	var notifier booking.ConfirmationNotifier
	var seatPublisher booking.SeatEventPublisher
	if cfg.AMQPURL != "" {
		publisher := events.NewPublisher(cfg.AMQPURL)
		defer publisher.Close()
		notifier = qr.NewNotifier(publisher)
		seatPublisher = publisher
	}

	bookingEngine := booking.New(bookingRepo, showtimeRepo, seatStore, cfg.HoldTTL, notifier, seatPublisher)
	sweep := sweeper.New(bookingRepo, seatStore, bookingEngine, cfg.BookingExpiry, cfg.SweepBookingInterval, cfg.SweepHoldInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("sweeper running")
	sweep.Run(ctx)
	log.Println("sweeper stopped")
}
