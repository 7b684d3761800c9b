package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mediflow/scheduling-api/internal/config"
	"github.com/mediflow/scheduling-api/internal/handler"
	availabilityHandler "github.com/mediflow/scheduling-api/internal/handler/availability"
	bookingHandler "github.com/mediflow/scheduling-api/internal/handler/booking"
	scheduleHandler "github.com/mediflow/scheduling-api/internal/handler/schedule"
	"github.com/mediflow/scheduling-api/internal/middleware"
	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository/postgres"
	"github.com/mediflow/scheduling-api/internal/router"
	availabilityService "github.com/mediflow/scheduling-api/internal/service/availability"
	bookingService "github.com/mediflow/scheduling-api/internal/service/booking"
	scheduleService "github.com/mediflow/scheduling-api/internal/service/schedule"
	"github.com/mediflow/scheduling-api/pkg/auth"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := model.RegisterValidations(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validations")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)

	// Initialize services
	availabilitySvc := availabilityService.NewService(userRepo, availabilityRepo, slotRepo, model.DefaultPermissionMatrix())
	bookingSvc := bookingService.NewService(userRepo, slotRepo, appointmentRepo)
	scheduleSvc := scheduleService.NewService(userRepo, slotRepo, appointmentRepo)

	// Initialize middleware and handlers
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	h := handler.NewHandler(db)
	availabilityH := availabilityHandler.NewHandler(availabilitySvc)
	bookingH := bookingHandler.NewHandler(bookingSvc)
	scheduleH := scheduleHandler.NewHandler(scheduleSvc)

	r := router.NewRouter(
		authMiddleware,
		availabilityH,
		bookingH,
		scheduleH,
		h,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "scheduling_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
