package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/config"
	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/database"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/http/handlers"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/http/middleware"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/http/router"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/integration/gohighlevel"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/integration/kickbox"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/integration/twilio"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/kv"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/mail"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/queue"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/worker"
	"github.com/conversn-io/seniorsimple-sub006/internal/logger"
	"github.com/conversn-io/seniorsimple-sub006/internal/usecase"
)

const version = "1.0.0"

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		boot.Fatal().Err(err).Msg("build logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, name := range cfg.Missing() {
		log.Warn().Str("setting", name).Msg("integration not configured")
	}

	// 1. Storage
	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()
	leadRepo := database.NewLeadEventRepository(db)

	var store kv.Store = kv.NewMemoryStore()
	var redisCheck handlers.HealthCheck
	if cfg.RedisURL != "" {
		client, err := kv.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer client.Close()
		redisStore := kv.NewRedisStore(client, "leads")
		store = redisStore
		redisCheck = redisStore.Ping
	} else {
		log.Warn().Msg("REDIS_URL not set: dedup and validation cache are per instance")
	}

	// 2. Destinations
	crm := crmDestination(cfg)

	var events entity.LeadDestination
	var rabbitCheck handlers.HealthCheck
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect rabbitmq")
		}
		defer rabbit.Close()
		events = queue.NewProducer(rabbit.Ch)
		rabbitCheck = func(context.Context) error { return rabbit.Ping() }

		sender := mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.LeadAlertRecipients)
		if sender.Configured() {
			consumerCh, err := rabbit.Conn.Channel()
			if err != nil {
				log.Fatal().Err(err).Msg("open consumer channel")
			}
			alerts := queue.NewWorker(consumerCh, sender, log)
			go func() {
				if err := alerts.Start(ctx, queue.QueueName); err != nil {
					log.Error().Err(err).Msg("lead alert worker stopped")
				}
			}()
		} else {
			log.Warn().Msg("SMTP not configured: lead alert worker disabled")
		}
	}

	// 3. Verifiers
	var emailVerifier entity.EmailVerifier
	if cfg.KickboxAPIKey != "" {
		emailVerifier = kickbox.NewClient(cfg.KickboxAPIKey, cfg.KickboxURL, cfg.VerifierTimeout)
	}
	var phoneVerifier entity.PhoneVerifier
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		phoneVerifier = twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioLookupURL, cfg.VerifierTimeout)
	}

	// 4. Use cases
	observer := middleware.PipelineObserver{}
	guard := usecase.NewDedupGuard(store, cfg.DedupRetention, log)
	dispatcher := usecase.NewDispatcher(guard, cfg.DeliveryTimeout, cfg.DeliveryHardTimeout, observer, log)
	captureUC := usecase.NewCaptureLeadUseCase(dispatcher, leadRepo, crm, events, log)
	retargetUC := usecase.NewRetargetUseCase(leadRepo, cfg.RetargetWindow, log)
	validator := usecase.NewContactValidator(
		emailVerifier,
		phoneVerifier,
		usecase.NewValidationCache(store, entity.ValidationKindEmail, cfg.EmailCacheTTL, log),
		usecase.NewValidationCache(store, entity.ValidationKindPhone, cfg.PhoneCacheTTL, log),
		usecase.ContactValidatorConfig{
			EmailCacheTTL:     cfg.EmailCacheTTL,
			PhoneCacheTTL:     cfg.PhoneCacheTTL,
			VerifierTimeout:   cfg.VerifierTimeout,
			DisposableDomains: cfg.DisposableDomains,
			RejectedLineTypes: cfg.RejectedLineTypes,
		},
		observer,
		log,
	)

	// 5. Background workers
	expirer := worker.NewLeadExpirationWorker(leadRepo, cfg.RetargetWindow, cfg.ExpirySweepInterval, log)
	go expirer.Start(ctx)

	// 6. Router
	handler := router.New(router.Options{
		Logger:             log,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		CaptureLimitPerMin: cfg.CaptureRateLimitPerMin,
		RetargetAPIKey:     cfg.RetargetAPIKey,
		Leads:              handlers.NewLeadHandler(captureUC, retargetUC),
		Validation:         handlers.NewValidationHandler(validator),
		Health: handlers.NewHealthHandler(version, map[string]handlers.HealthCheck{
			"database": leadRepo.Ping,
			"rabbitmq": rabbitCheck,
			"redis":    redisCheck,
		}),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("lead intake api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DeliveryHardTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// crmDestination returns an untyped nil when the webhook is not configured so
// the capture use case reports it as a configuration error.
func crmDestination(cfg *config.Config) entity.LeadDestination {
	ghl := gohighlevel.NewClient(cfg.GHLWebhookURL, cfg.GHLAPIKey, cfg.GHLPayloadShape, cfg.DeliveryHardTimeout)
	if !ghl.Configured() {
		return nil
	}
	return ghl
}
