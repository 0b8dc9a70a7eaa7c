package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/availability"
	"github.com/jwalitptl/clinic-api/internal/bootstrap"
	"github.com/jwalitptl/clinic-api/internal/config"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	clinicHandler "github.com/jwalitptl/clinic-api/internal/handler/clinic"
	doctorHandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	submissionHandler "github.com/jwalitptl/clinic-api/internal/handler/submission"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	clinicService "github.com/jwalitptl/clinic-api/internal/service/clinic"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/submission"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"

	_ "time/tzdata"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := bootstrap.Logger(cfg.Logging)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	storage, err := bootstrap.OpenStorage(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer storage.Close()
	repos := storage.Repos

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Metrics.Namespace, registry)

	// The in-process store is invisible to a separate worker, so the API
	// relays its own outbox.
	var outboxDone <-chan struct{}
	if cfg.Database.Driver == "memory" {
		broker, err := bootstrap.Broker(ctx, cfg.Messaging, m, appLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to message broker")
		}
		defer broker.Close()

		outboxDone, err = bootstrap.StartOutbox(ctx, cfg, repos, broker, m, appLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start outbox relay")
		}
	}

	// Initialize services
	v := validator.New(availability.TimeOfDayRule())
	location := bootstrap.Location(cfg.Scheduling)
	format := bootstrap.MoneyFormat(cfg.Scheduling)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	authSvc := authService.NewService(repos.Users, jwtSvc, security.NewBcryptHasher(cfg.Security.BcryptCost), v, appLogger)
	clinicSvc := clinicService.NewService(repos.Clinics, v, appLogger)
	doctorSvc := doctorService.NewService(repos.Doctors, v, doctorService.Options{
		Location: location,
		Locale:   cfg.Scheduling.Locale,
		Money:    format,
	}, appLogger)
	patientSvc := patientService.NewService(repos.Patients, v, appLogger)
	appointmentSvc := appointmentService.NewService(repos, v, appointmentService.Options{
		Location:               location,
		DefaultDurationMinutes: cfg.Scheduling.DefaultDurationMinutes,
		Money:                  format,
	}, m, appLogger)

	tracker := submission.NewTracker(cfg.Submission.TTL)

	// Initialize router
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins

	routerConfig := router.RouterConfig{
		CORSConfig: corsConfig,
		Timeout:    cfg.Server.RequestTimeout,
		Metrics:    m,
		Tracker:    tracker,
		Sessions:   authSvc,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = &middleware.RateLimiterConfig{
			Rate:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst:   cfg.RateLimit.Burst,
			IdleTTL: cfg.RateLimit.IdleTTL,
		}
	}

	var pinger health.Pinger
	if storage.DB != nil {
		pinger = storage.DB
	}

	r := router.NewRouter(routerConfig,
		health.NewHandler(pinger, registry),
		authHandler.NewHandler(authSvc),
		clinicHandler.NewHandler(clinicSvc),
		doctorHandler.NewHandler(doctorSvc),
		patientHandler.NewHandler(patientSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		submissionHandler.NewHandler(tracker),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port, "database", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "Server forced to shutdown")
		os.Exit(1)
	}
	if outboxDone != nil {
		<-outboxDone
	}

	appLogger.Info("Server exited")
}
