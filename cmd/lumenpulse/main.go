package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stellar/go/keypair"
	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/adapters/events"
	"github.com/mijinummi/Lumenpulse/adapters/horizon"
	"github.com/mijinummi/Lumenpulse/adapters/mailer"
	"github.com/mijinummi/Lumenpulse/adapters/ratelimit"
	"github.com/mijinummi/Lumenpulse/adapters/store/postgres"
	"github.com/mijinummi/Lumenpulse/adapters/tokenizer"
	"github.com/mijinummi/Lumenpulse/internal/config"
	"github.com/mijinummi/Lumenpulse/internal/logger"
	"github.com/mijinummi/Lumenpulse/ports"
	"github.com/mijinummi/Lumenpulse/service"
	transport "github.com/mijinummi/Lumenpulse/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("service exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	signer, err := loadSigner(cfg, log)
	if err != nil {
		return err
	}

	jwtKey, err := loadJWTKey(cfg, log)
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg.Database.URL); err != nil {
			return err
		}
		log.Info("database migrations applied")
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redisClient},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	eventPub := events.NewWatermillPublisher(publisher)

	users := postgres.NewUserStore(pool)
	refreshTokens := postgres.NewRefreshTokenStore(pool)
	resetTokens := postgres.NewResetTokenStore(pool)

	var mail ports.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			ResetURL: cfg.SMTP.ResetURL,
		})
	} else {
		mail = mailer.NewLogMailer(log)
	}

	tok := tokenizer.NewJWTTokenizer(jwtKey)

	challenges := service.NewChallengeStore(service.DefaultSweepInterval, log)
	go challenges.Run(ctx)

	refreshMgr := service.NewRefreshManager(refreshTokens, users, tok, log)
	resetMgr := service.NewResetManager(users, resetTokens, mail, eventPub, log)
	authSvc := service.NewAuthService(challenges, users, refreshMgr, tok, eventPub, signer, cfg.Auth.HomeDomain, log)

	ledger := horizon.NewClient(cfg.Horizon.URL)
	limiter := ratelimit.NewRedisLimiter(redisClient, "lumenpulse:ratelimit", 10, time.Minute)

	handlers := transport.NewAuthHandlers(authSvc, refreshMgr, resetMgr, ledger, eventPub, log)
	router := transport.SetupRouter(handlers, tok, limiter, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	// Cancelling the root context stops the challenge sweep.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func loadSigner(cfg *config.Config, log *zap.Logger) (*keypair.Full, error) {
	if cfg.Auth.SigningSeed == "" {
		kp := keypair.MustRandom()
		log.Warn("no signing seed configured, generated an ephemeral server identity",
			zap.String("address", kp.Address()))
		return kp, nil
	}

	kp, err := keypair.ParseFull(cfg.Auth.SigningSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing seed: %w", err)
	}
	return kp, nil
}

func loadJWTKey(cfg *config.Config, log *zap.Logger) (*ecdsa.PrivateKey, error) {
	if cfg.Auth.JWTPrivateKey == "" {
		log.Warn("no JWT key configured, sessions will not survive a restart")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.Auth.JWTPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT private key: %w", err)
	}
	return key, nil
}

func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
