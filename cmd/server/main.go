package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BillStark001/meetscript/internal/auth"
	"github.com/BillStark001/meetscript/internal/config"
	"github.com/BillStark001/meetscript/internal/engine"
	"github.com/BillStark001/meetscript/internal/engine/deepl"
	"github.com/BillStark001/meetscript/internal/engine/google"
	"github.com/BillStark001/meetscript/internal/engine/mock"
	"github.com/BillStark001/meetscript/internal/events"
	"github.com/BillStark001/meetscript/internal/meeting"
	"github.com/BillStark001/meetscript/internal/observability"
	"github.com/BillStark001/meetscript/internal/observability/logging"
	"github.com/BillStark001/meetscript/internal/storage"
	"github.com/BillStark001/meetscript/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Init(logging.DefaultConfig())
		logger := logging.Logger()
		logger.Fatal().Err(err).Msg("Config load failed")
	}
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	log := logging.WithComponent("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Store init failed")
	}
	defer closeStore()

	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicPartial:     cfg.Kafka.TopicPartial,
		TopicFinal:       cfg.Kafka.TopicFinal,
		TopicTranslation: cfg.Kafka.TopicTranslation,
		Principal:        cfg.Kafka.Principal,
	})
	defer publisher.Close()

	scheduler := meeting.NewScheduler(
		meeting.SchedulerConfig{
			SampleRate:        cfg.Audio.SampleRate,
			MaxGapMillis:      cfg.Meeting.GapFillMaxMillis,
			MaxSpanMillis:     cfg.Meeting.MaxBufferedMillis,
			QueueCapacity:     cfg.Meeting.QueueCapacity,
			CompleteGapMillis: cfg.Meeting.CompleteGapMillis,
			MaxSegmentMillis:  cfg.Meeting.MaxSegmentMillis,
			SilenceThreshold:  cfg.Meeting.SilenceThreshold,
			PassPause:         cfg.Meeting.PassPause,
			CyclePause:        cfg.Meeting.CyclePause,
			TargetLanguages:   cfg.Meeting.TargetLanguages,
		},
		store,
		publisher,
		buildRecognizerFactory(cfg),
		buildTranslator(cfg),
	)

	authenticator := auth.New(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if cfg.Auth.IssueDevToken {
		token, err := authenticator.Issue("dev@localhost", auth.ScopeControl)
		if err != nil {
			log.Fatal().Err(err).Msg("Dev token issue failed")
		}
		log.Info().Str("token", token).Msg("Development control token")
	}

	obs := observability.NewServer(cfg.Service.MetricsAddr)
	obs.Start()

	api := transport.NewAPI(authenticator, scheduler, store,
		transport.NewWSHandler(authenticator, scheduler))
	server := &http.Server{
		Addr:        cfg.Service.HTTPAddr,
		Handler:     api.Router(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Service.HTTPAddr).Msg("Meetscript service started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
	scheduler.Shutdown()
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.Redis.Enabled {
		store, err := storage.NewRedisStore(ctx, storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return storage.NewMemoryStore(), func() {}, nil
}

func buildRecognizerFactory(cfg *config.Config) meeting.RecognizerFactory {
	lang := cfg.Recognizer.LanguageCode
	switch cfg.Recognizer.Provider {
	case "google":
		return func(ctx context.Context) (engine.Recognizer, error) {
			return google.New(ctx, lang)
		}
	default:
		return func(ctx context.Context) (engine.Recognizer, error) {
			return mock.NewRecognizer(lang), nil
		}
	}
}

func buildTranslator(cfg *config.Config) engine.Translator {
	switch cfg.Translator.Provider {
	case "deepl":
		return deepl.New(cfg.Translator.DeepLAuthKey, cfg.Translator.DeepLFree)
	default:
		return mock.NewTranslator()
	}
}
