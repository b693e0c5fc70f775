package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"property-ledger-backend/internal/config"
	handler "property-ledger-backend/internal/handlers"
	"property-ledger-backend/internal/repository"
	"property-ledger-backend/internal/services/application"
	"property-ledger-backend/internal/services/latefee"
	"property-ledger-backend/internal/services/matching"
	"property-ledger-backend/internal/services/recurring"
)

// Services bundles the wired engine services so main can hand them to the
// scheduler.
type Services struct {
	Matching    *matching.Service
	Application *application.Service
	LateFees    *latefee.Engine
	Recurring   *recurring.Processor
}

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, gateway recurring.Gateway, log zerolog.Logger) *Services {
	ledger := repository.NewLedger(db)

	matchingService := matching.NewService(ledger, log)
	applicationService := application.NewService(ledger, log)
	lateFeeEngine := latefee.NewEngine(ledger, applicationService, cfg.CollectionAfterDays, log)
	recurringProcessor := recurring.NewProcessor(ledger, gateway, log)

	matchingHandler := handler.NewMatchingHandler(matchingService, log)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	lateFeeHandler := handler.NewLateFeeHandler(lateFeeEngine)
	recurringHandler := handler.NewRecurringHandler(recurringProcessor)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Reconciliation routes
	recon := api.Group("/reconciliation")
	recon.POST("/import", matchingHandler.Import)
	recon.GET("/:batchId", matchingHandler.GetBatch)
	recon.GET("/:batchId/matches", matchingHandler.ListMatches)
	recon.POST("/:batchId/rerun", matchingHandler.Rerun)

	matches := api.Group("/matches")
	matches.POST("/:id/resolve", matchingHandler.ResolveMatch)

	// Payment application routes
	applications := api.Group("/applications")
	applications.POST("", applicationHandler.Apply)
	applications.POST("/auto", applicationHandler.AutoApply)
	applications.POST("/:id/reverse", applicationHandler.Reverse)

	api.POST("/deposits", applicationHandler.RecordDeposit)

	// Late fee routes
	latefees := api.Group("/latefees")
	latefees.POST("/run", lateFeeHandler.Run)
	latefees.POST("/actions/:id/apply", lateFeeHandler.ApplyAction)

	// Recurring payment routes
	recurringGroup := api.Group("/recurring")
	recurringGroup.POST("/run", recurringHandler.Run)
	recurringGroup.POST("/:id/pause", recurringHandler.Pause)
	recurringGroup.POST("/:id/resume", recurringHandler.Resume)
	recurringGroup.POST("/:id/cancel", recurringHandler.Cancel)

	return &Services{
		Matching:    matchingService,
		Application: applicationService,
		LateFees:    lateFeeEngine,
		Recurring:   recurringProcessor,
	}
}
