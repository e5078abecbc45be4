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

	"github.com/AbhishekPandey12345/CampusHub/internal/config"
	"github.com/AbhishekPandey12345/CampusHub/internal/consumer"
	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/handler"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
	"github.com/AbhishekPandey12345/CampusHub/internal/service"
	"github.com/AbhishekPandey12345/CampusHub/internal/store"
	"github.com/AbhishekPandey12345/CampusHub/pkg/database"
	"github.com/AbhishekPandey12345/CampusHub/pkg/jwt"
	pkglog "github.com/AbhishekPandey12345/CampusHub/pkg/log"
	"github.com/AbhishekPandey12345/CampusHub/pkg/middleware"
	"github.com/AbhishekPandey12345/CampusHub/pkg/storage"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "social-core-service",
	})
	logger := pkglog.L()

	// 3. Init DB (GORM, auto-migrate models)
	dbConfig := &database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
	}
	defer sqlDB.Close()

	if err := database.AutoMigrate(db,
		&domain.ConversationModel{},
		&domain.ParticipantModel{},
		&domain.MessageModel{},
		&domain.FollowModel{},
		&domain.UserModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// 4. Init Redis count cache
	redisStore, err := store.NewRedisCountStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisStore.Close()
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")

	// 5. Init avatar storage
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mediaStorage storage.Storage
	switch cfg.Storage.Backend {
	case "s3":
		mediaStorage, err = storage.NewS3Storage(ctx, cfg.Storage.S3)
	default:
		mediaStorage, err = storage.NewLocalStorage(cfg.Storage.Local)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to init media storage")
	}
	logger.Info().Str("backend", cfg.Storage.Backend).Msg("media storage ready")

	// 6. Create repositories and services
	conversationRepo := repository.NewGormConversationRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	followRepo := repository.NewGormFollowRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	access := service.NewAccessEvaluator(userRepo)
	conversationSvc := service.NewConversationService(conversationRepo, messageRepo, userRepo, access)
	socialSvc := service.NewSocialGraphService(followRepo, userRepo, redisStore)
	projection := service.NewUserProjectionService(userRepo)

	// 7. Create auth middleware from the identity gateway's public key
	publicKeyPEM, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Auth.PublicKeyPath).Msg("failed to read jwt public key")
	}
	verifier, err := jwt.NewVerifier(publicKeyPEM)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// 8. Init Kafka CDC consumer maintaining the users projection
	var kafkaConsumer *consumer.ConfluentConsumer
	if cfg.Kafka.Brokers != "" {
		kc, err := consumer.NewConfluentConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topic,
			cfg.Kafka.GroupID,
			projection,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, user projection updates disabled")
		} else {
			if err := kc.Start(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to start kafka consumer")
			} else {
				kafkaConsumer = kc
			}
		}
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not configured; user projection consumer disabled")
	}

	// 9. Setup Gin router + HTTP server
	httpHandler := handler.NewHandler(conversationSvc, socialSvc, mediaStorage, authMiddleware)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	httpHandler.RegisterRoutes(r)

	// 10. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg("social-core-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// 1. cancel(): stop the Kafka consumer loop
		cancel()

		// 2. kafkaConsumer.Close(): wait for in-flight CDC message
		if kafkaConsumer != nil {
			if err := kafkaConsumer.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing kafka consumer")
			}
		}

		// 3. server.Shutdown(5s): drain HTTP
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg("social-core-service stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
