package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"planning"
	"planning/internal/api/events"
	"planning/internal/api/handler/endpoints"
	"planning/internal/api/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
)

func main() {
	planning.InitConfig(".env")
	gin.SetMode(gin.ReleaseMode)

	if planning.GetConfig().Mode == "dev" {
		if err := planning.DB.AutoMigrate(
			&models.Machine{},
			&models.JobPlanning{},
			&models.JobStep{},
			&models.MachineAssignment{},
			&models.IntegrityAudit{},
		); err != nil {
			planning.Logger.Fatal().Err(err).Msg("Failed to migrate database")
		}
		planning.Logger.Info().Msg("Database migrated successfully")
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	router, err := graceful.Default(graceful.WithAddr(planning.GetConfig().ApiPort))
	if err != nil {
		panic(err)
	}
	defer stop()
	defer router.Close()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	pub := events.NewPublisher(
		planning.GetConfig().NatsConfig.URL,
		planning.GetConfig().NatsConfig.TenantID,
		planning.Logger,
	)
	defer pub.Close()

	initAPI(router, pub)

	planning.Logger.Debug().Msgf("Starting planning API on port %s", planning.GetConfig().ApiPort)
	if err = router.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		planning.Logger.Fatal().Msg(err.Error())
		panic(err)
	}
}

func initAPI(router *graceful.Graceful, pub *events.Publisher) {
	endpoints.PlanningHandler(router, pub)
	endpoints.StepHandler(router, pub)
	endpoints.AssignmentHandler(router, pub)
	endpoints.IntegrityHandler(router, pub)
	endpoints.MachineHandler(router)
}
