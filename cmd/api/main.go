package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/agendazap/agendazap/cmd/mainconfig"
	"github.com/agendazap/agendazap/internal/api/router"
	"github.com/agendazap/agendazap/internal/archive"
	"github.com/agendazap/agendazap/internal/booking"
	"github.com/agendazap/agendazap/internal/bot"
	appconfig "github.com/agendazap/agendazap/internal/config"
	"github.com/agendazap/agendazap/internal/http/handlers"
	"github.com/agendazap/agendazap/internal/notify"
	observemetrics "github.com/agendazap/agendazap/internal/observability/metrics"
	"github.com/agendazap/agendazap/internal/provider"
	"github.com/agendazap/agendazap/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agendazap API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	store := bot.NewStore(redisClient, bot.StoreConfig{
		TTL:         cfg.BotStateTTL,
		Timeout:     cfg.BotStateTimeout,
		HistorySize: cfg.BotHistorySize,
	}, nil)

	promMetrics := observemetrics.NewBotMetrics(nil)

	botMetrics := bot.NewMetrics(redisClient, logger)
	botMetrics.MirrorTo(promMetrics)
	if err := botMetrics.Restore(ctx); err != nil {
		logger.Warn("could not restore bot metrics", "error", err)
	}

	detector := bot.NewDetector(bot.NewRuleEngine(), buildClassifier(ctx, cfg, awsCfg, logger), bot.DetectorConfig{
		RuleConfidenceThreshold: cfg.BotRuleConfidence,
		MLImprovementMargin:     cfg.BotMLMargin,
		MLWordThreshold:         cfg.BotMLWordThreshold,
	}, logger)

	// Everything backed by Postgres is optional. Without DATABASE_URL the bot
	// still answers questions and fills slots, it just cannot persist
	// appointments, resolve the service catalog, or alert the provider.
	var (
		resolver     bot.ServiceResolver
		appointments bot.AppointmentCreator
		archiver     bot.InteractionArchiver
		policy       bot.PolicySource
		notifier     bot.HandoffNotifier
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		bookingAdapter := booking.NewAdapter(db, logger)
		prefsStore := provider.NewPrefsStore(db)

		resolver = booking.NewCatalogResolver(bookingAdapter, cfg.ProviderID)
		appointments = &bookingCreator{adapter: bookingAdapter, providerID: cfg.ProviderID}
		archiver = &interactionArchiver{collector: archive.NewCollector(db, logger)}
		policy = &prefsPolicy{prefs: prefsStore, providerID: cfg.ProviderID}
		notifier = &handoffNotifier{
			service:       notify.NewService(buildEmailSender(cfg, awsCfg, logger), prefsStore, logger),
			providerID:    cfg.ProviderID,
			providerEmail: cfg.ProviderEmail,
		}
	} else {
		logger.Warn("DATABASE_URL not set, running without booking persistence")
	}

	filler := bot.NewSlotFiller(bot.NewParser(), resolver, logger)
	responder := bot.NewResponder(bot.ResponderConfig{FollowUpThreshold: cfg.BotFollowUpThreshold})

	engine := bot.NewEngine(store, detector, filler, responder, botMetrics,
		appointments, notifier, archiver, policy,
		bot.EngineConfig{
			LowConfidenceFloor:  cfg.BotLowConfidenceFloor,
			LowConfidenceStreak: cfg.BotLowConfidenceStreak,
			ProviderName:        cfg.ProviderName,
		}, logger)

	var dispatcher *bot.Dispatcher
	if cfg.UseMemoryQueue || cfg.BotQueueURL == "" {
		dispatcher = bot.NewDispatcher(engine, bot.NewMemoryQueue(64), logger,
			bot.WithWorkerCount(cfg.WorkerCount))
	} else {
		dispatcher = bot.NewDispatcher(engine, bot.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BotQueueURL), logger,
			bot.WithWorkerCount(cfg.WorkerCount))
	}

	webhook := handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{
		Dispatcher: dispatcher,
		Metrics:    promMetrics,
		Logger:     logger,
	})

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		Stats:          handlers.NewBotStatsHandler(botMetrics),
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}
	if err := botMetrics.Flush(shutdownCtx); err != nil {
		logger.Error("could not flush bot metrics", "error", err)
	}

	logger.Info("server stopped")
}

// buildClassifier wires the ML fallback. Bedrock is primary when configured,
// Gemini covers the rest; with neither the detector runs rules only.
func buildClassifier(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *bot.LLMClassifier {
	var (
		client  bot.LLMClient
		modelID string
	)
	if cfg.BedrockModelID != "" {
		client = bot.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		modelID = cfg.BedrockModelID
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := bot.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to initialize Gemini client", "error", err)
		} else if client != nil {
			client = bot.NewFallbackLLMClient(client, gemini, logger)
		} else {
			client = gemini
			modelID = cfg.GeminiModel
		}
	}
	if client == nil {
		logger.Warn("no LLM configured, intent detection runs on rules only")
	}
	return bot.NewLLMClassifier(client, modelID)
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		return sg
	}
	if cfg.SESFromEmail != "" {
		if ses := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
		}, logger); ses != nil {
			return ses
		}
	}
	return notify.NewStubEmailSender(logger)
}
