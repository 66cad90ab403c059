package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"wastevision-service/internal/auth"
	"wastevision-service/internal/config"
	"wastevision-service/internal/db"
	"wastevision-service/internal/domain/account"
	httpapi "wastevision-service/internal/http"
	"wastevision-service/internal/inference"
	"wastevision-service/internal/preprocess"
	"wastevision-service/internal/render"
	"wastevision-service/internal/repository"
	"wastevision-service/internal/service"
	"wastevision-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := inference.InitRuntime(cfg.Models.ORTLibrary); err != nil {
		log.Fatal().Err(err).Msg("failed to initialise onnxruntime")
	}
	defer func() {
		if err := inference.ShutdownRuntime(); err != nil {
			log.Error().Err(err).Msg("failed to shut down onnxruntime")
		}
	}()

	// The generic detector is mandatory.
	detector, err := inference.NewDetector(inference.DetectorConfig{
		ModelPath: cfg.Models.DefaultModel,
		InputSize: cfg.Models.DefaultInputSize,
		PoolSize:  cfg.Models.PoolSize,
	}, log.With().Str("component", "detector").Logger())
	if err != nil {
		log.Fatal().Err(err).Str("model", cfg.Models.DefaultModel).Msg("failed to load default model")
	}
	defer detector.Close()

	var classifierAdapter *service.ClassifierAdapter
	classifier, err := inference.NewClassifier(inference.ClassifierConfig{
		ModelPath: cfg.Models.CustomModel,
		InputSize: cfg.Models.CustomInputSize,
		PoolSize:  cfg.Models.PoolSize,
	}, log.With().Str("component", "classifier").Logger())
	if err != nil {
		log.Warn().Err(err).Str("model", cfg.Models.CustomModel).Msg("custom model not loaded")
	} else {
		defer classifier.Close()
		classifierAdapter = service.NewClassifierAdapter(classifier, log)
	}

	var enhancer *preprocess.Enhancer
	if cfg.Preprocessing.Enabled {
		enhancer = preprocess.NewEnhancer(preprocess.Options{
			MaxImageSize: cfg.Preprocessing.MaxImageSize,
			Contrast:     cfg.Preprocessing.Contrast,
			Sharpness:    cfg.Preprocessing.Sharpness,
			Brightness:   cfg.Preprocessing.Brightness,
		}, log)
	}

	renderer := render.NewRenderer(render.Options{
		LineThickness:  cfg.Render.LineThickness,
		FontSize:       cfg.Render.FontSize,
		BannerFontSize: cfg.Render.BannerFontSize,
		FontPath:       cfg.Render.FontPath,
		HideLabels:     cfg.Render.HideLabels,
		HideConf:       cfg.Render.HideConf,
	}, log)

	artifacts, err := storage.NewArtifactStore(afero.NewOsFs(), cfg.Storage.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare artifact directory")
	}
	log.Info().Str("dir", artifacts.Dir()).Msg("artifact store ready")

	var (
		users   account.UserStore
		records account.RecordStore
	)
	if cfg.Database.Enabled {
		conn, err := db.Open(ctx, cfg.Database.DSN, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer func() {
			if err := db.Close(conn); err != nil {
				log.Error().Err(err).Msg("failed to close database")
			}
		}()
		users = repository.NewUserRepository(conn)
		records = repository.NewRecordRepository(conn)
	} else {
		log.Warn().Msg("database disabled, accounts and records are kept in memory")
		users = storage.NewMemoryUserStore()
		records = storage.NewMemoryRecordStore()
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.TokenTTL, users)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure token manager")
	}

	identifyService := service.NewIdentifyService(
		artifacts,
		enhancer,
		classifierAdapter,
		service.NewDetectorAdapter(detector, log),
		renderer,
		service.IdentifyOptions{
			Detect: inference.DetectOptions{
				Confidence:    cfg.Detection.Confidence,
				IoU:           cfg.Detection.IoU,
				MaxDetections: cfg.Detection.MaxDetections,
			},
			CustomModelPath: cfg.Models.CustomModel,
		},
		log,
	)
	accountService := service.NewAccountService(users, tokens, cfg.Auth.LoginTTL, log)
	recordService := service.NewRecordService(records, artifacts, log)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(cfg.Server, log)
	handler := httpapi.NewHandler(identifyService, accountService, recordService, cfg, log)
	handler.Register(router, auth.Middleware(tokens, log))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Bool("custom_model_loaded", classifierAdapter != nil).
			Bool("database", cfg.Database.Enabled).
			Msg("wastevision service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "wastevision").Logger()
}
