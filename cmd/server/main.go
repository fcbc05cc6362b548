package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/config"
	bookingDomain "github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	bookingEvents "github.com/educonnect/service-booking/internal/events"
	"github.com/educonnect/service-booking/internal/handler"
	"github.com/educonnect/service-booking/internal/repository"
	"github.com/educonnect/service-booking/pkg/auth"
	"github.com/educonnect/service-booking/pkg/health"
	"github.com/educonnect/service-booking/pkg/kafka"
	"github.com/educonnect/service-booking/pkg/logger"
	"github.com/educonnect/service-booking/pkg/metrics"
	"github.com/educonnect/service-booking/pkg/middleware"
	"github.com/educonnect/service-booking/pkg/tracer"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, cfg.ServiceName())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracer.Init(ctx, cfg.TracingConfig)
	if err != nil {
		log.Fatal("failed to init tracing", zap.Error(err))
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Open the store and apply migrations
	store, err := repository.Open(cfg.StoreDriver, cfg.DBConfig, "migrations", log)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.Issuer, cfg.JWTConfig.TokenTTL)
	collector := metrics.NewCollector("booking")
	clock := timerange.SystemClock{}

	// Notification fan-out: always log, publish to Kafka when enabled
	notifiers := []bookingEvents.Notifier{bookingEvents.NewLogNotifier(log)}
	var kafkaProducer *kafka.Producer
	if cfg.KafkaConfig.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		notifiers = append(notifiers, bookingEvents.NewKafkaNotifier(kafkaProducer, log))
	}
	dispatcher := bookingEvents.NewDispatcher(cfg.Booking.DispatchBuffer, cfg.Booking.DispatchWorkers, collector, log, notifiers...)
	defer dispatcher.Close()

	background := application.NewBackground()
	after := application.PostCommit{Dispatcher: dispatcher, Background: background}

	// Reminders need Redis
	var reminderWorker *bookingEvents.ReminderWorker
	if cfg.RedisConfig.Enabled {
		redisOpt := bookingEvents.RedisOpt(cfg.RedisConfig)
		scheduler := bookingEvents.NewReminderScheduler(redisOpt, cfg.Booking.ReminderLeadTime, clock, log)
		defer func() { _ = scheduler.Close() }()
		after.Reminders = scheduler

		reminderWorker = bookingEvents.NewReminderWorker(redisOpt, store.Bookings, dispatcher, log)
		if err := reminderWorker.Start(); err != nil {
			log.Fatal("failed to start reminder worker", zap.Error(err))
		}
	}

	// Cancellation rules
	providerPolicy := bookingDomain.NewProviderPolicy()
	providerPolicy.MinNotice = cfg.Booking.ProviderCancelNotice
	requesterPolicy := bookingDomain.NewRequesterPolicy(cfg.Booking.RequesterCancelNotice)

	// Initialize application services
	slotService := application.NewSlotService(store.Slots, clock, collector, log)
	reservationService := application.NewReservationService(
		store.UnitOfWork,
		bookingDomain.NewLinkGenerator(cfg.Booking.MeetingBaseURL),
		after,
		clock,
		collector,
		log,
	)
	cancellationService := application.NewCancellationService(
		store.UnitOfWork,
		providerPolicy,
		requesterPolicy,
		after,
		clock,
		collector,
		log,
	)
	queryService := application.NewBookingQueryService(store.Bookings, clock, log)
	completionService := application.NewCompletionService(store.UnitOfWork, clock, collector, log)
	participantService := application.NewParticipantService(store.Participants, clock, log)

	// Keep the participant directory in sync with profile events
	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
		participantConsumer := bookingEvents.NewParticipantEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			participantService,
			log,
		)
		defer func() { _ = participantConsumer.Close() }()

		go func() {
			log.Info("starting participant event consumer")
			if err := participantConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("participant event consumer error", zap.Error(err))
			}
		}()
	}

	// Periodically complete sessions that have ended
	if cfg.Booking.SweepInterval > 0 {
		go runSweeper(ctx, completionService, cfg.Booking.SweepInterval, cfg.Booking.SweepBatch, log)
	}

	// Initialize HTTP handlers
	participantHandler := handler.NewParticipantHandler(participantService)
	slotHandler := handler.NewSlotHandler(slotService, reservationService)
	bookingHandler := handler.NewBookingHandler(queryService, cancellationService)
	adminBookingHandler := handler.NewAdminBookingHandler(queryService, completionService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.MetricsMiddleware(collector))
	router.Use(middleware.RateLimitMiddleware(cfg.Booking.RateLimitPerMinute, cfg.Booking.RateLimitBurst, log))

	// Register health check and metrics routes
	var checks []health.Check
	if store.DB != nil {
		checks = append(checks, health.DatabaseCheck(store.DB))
	}
	health.NewHandler(cfg.ServiceName(), checks...).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	// Register routes
	participantHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	slotHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminBookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Stop the consumer and the sweeper
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	// Let in-flight reminder scheduling finish before the scheduler closes
	background.Wait()
	if reminderWorker != nil {
		reminderWorker.Shutdown()
	}

	log.Info("service-booking stopped")
}

// runSweeper completes elapsed bookings every interval until ctx is done.
func runSweeper(ctx context.Context, completions *application.CompletionService, interval time.Duration, batch int, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := completions.CompleteElapsed(ctx, batch)
			if err != nil {
				log.Warn("completion sweep failed", zap.Error(err))
				continue
			}
			if result.Completed > 0 || result.Skipped > 0 {
				log.Info("completion sweep",
					zap.Int("completed", result.Completed),
					zap.Int("skipped", result.Skipped),
				)
			}
		}
	}
}
