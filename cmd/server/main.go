package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"property-ledger-backend/internal/config"
	"property-ledger-backend/internal/models"
	"property-ledger-backend/internal/routes"
	"property-ledger-backend/internal/scheduler"
	"property-ledger-backend/internal/services/recurring"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	cfg := config.Load()
	db := cfg.InitDB()

	db.AutoMigrate(
		&models.Invoice{},
		&models.Payment{},
		&models.PaymentApplication{},
		&models.BankTransaction{},
		&models.SystemTransaction{},
		&models.ImportBatch{},
		&models.ReconciliationMatch{},
		&models.MatchAuditLog{},
		&models.LateFeeRule{},
		&models.LateFeeAction{},
		&models.RecurringPaymentSchedule{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// The default gateway settles recurring charges internally; a real
	// payment provider plugs in here.
	gateway := recurring.GatewayFunc(func(ctx context.Context, s *models.RecurringPaymentSchedule) error {
		return nil
	})

	services := routes.RegisterRoutes(r, db, cfg, gateway, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SchedulerEnabled {
		sched := scheduler.New(services.LateFees, services.Recurring, cfg.LateFeeInterval, cfg.RecurringInterval, log)
		sched.Start(ctx)
	}

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
