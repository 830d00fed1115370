package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/evertly/boxoffice/internal/booking"
	"github.com/evertly/boxoffice/internal/clock"
	"github.com/evertly/boxoffice/internal/config"
	"github.com/evertly/boxoffice/internal/database"
	"github.com/evertly/boxoffice/internal/handler"
	"github.com/evertly/boxoffice/internal/payment"
	"github.com/evertly/boxoffice/internal/queue"
	"github.com/evertly/boxoffice/internal/repository"
	"github.com/evertly/boxoffice/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := repository.NewStore(db)
	clk := clock.System{}
	provider := payment.NewSandbox()

	// The store doubles as the payment account and plan lookup; both read
	// the organizations table.
	reservations := booking.NewReservationManager(store, booking.DefaultCaps{}, clk)
	ledger := booking.NewLedger(store)
	purchases := booking.NewPurchaseCoordinator(store, provider, store, store, payment.DefaultFeeSchedule, booking.DefaultCaps{}, cfg.Currency)
	redeemer := booking.NewRedeemer(store, clk)
	refunds := booking.NewRefundManager(store, provider, store)

	// Background loops: expired-hold cleanup plus charge-journal
	// reconciliation, and the lifecycle event consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go booking.NewSweeper(store, clk).Run(ctx)
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("queue: consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, router.Handlers{
		Reservation: handler.NewReservationHandler(ledger, reservations),
		Purchase:    handler.NewPurchaseHandler(purchases),
		Scan:        handler.NewScanHandler(redeemer),
		Refund:      handler.NewRefundHandler(refunds),
	}, cfg, config.LoadRateLimitConfig(), config.NewRedisClient())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
