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

	"customer-auth/config"
	"customer-auth/controller"
	"customer-auth/delivery"
	"customer-auth/handler"
	"customer-auth/migrations"
	"customer-auth/pkg/clock"
	"customer-auth/pkg/goroutine"
	"customer-auth/pkg/logger"
	"customer-auth/repository"
	"customer-auth/service"
	"customer-auth/validator"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

const (
	serviceVersion      = "1.0.0"
	cleanupInterval     = 5 * time.Minute
	backgroundTaskLimit = 256
)

// @title Customer Authentication Service API
// @version 1.0
// @description Phone number sign-in with one-time codes, JWT sessions and logout
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
// @description Enter JWT Bearer token in format: Bearer {token}
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Mode, cfg.Logger.File)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("Invalid configuration", "error", err)
	}

	log.Infow("Starting Customer Authentication Service",
		"version", serviceVersion,
		"environment", cfg.Application.Environment,
		"port", cfg.HTTPServer.Port,
		"log_level", cfg.Logger.Level,
		"delivery_driver", cfg.Delivery.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	log.Infow("Database connected successfully",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	if err := migrations.RunMigrations(ctx, db, migrations.Files(), log); err != nil {
		log.Fatalw("Failed to run database migrations", "error", err)
	}

	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		log.Fatalw("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()

	log.Infow("Redis connected successfully", "host", cfg.Redis.Host, "port", cfg.Redis.Port)

	sender, closeSender, err := delivery.New(cfg.Delivery, log)
	if err != nil {
		log.Fatalw("Failed to initialize OTP delivery", "error", err)
	}

	clk := clock.New()
	tasks := goroutine.NewManager(backgroundTaskLimit, log.Named("tasks"))

	// Repositories
	store := repository.NewStore(db)
	rateLimitRepo := repository.NewRedisRateLimitRepository(redisClient, log)

	// Services
	jwtService, err := service.NewJWTService(cfg, clk, log)
	if err != nil {
		log.Fatalw("Failed to initialize JWT service", "error", err)
	}
	otpService := service.NewOTPService(store, store.Repositories, rateLimitRepo, jwtService, sender, tasks, clk, cfg, log)
	authService := service.NewAuthService(store.Session, jwtService, clk, log)
	customerService := service.NewCustomerService(store.Customer, log)

	// Controllers
	v := validator.New()
	controllers := handler.Controllers{
		OTP:      controller.NewOTPController(otpService, v, log),
		Auth:     controller.NewAuthController(authService, log),
		Customer: controller.NewCustomerController(customerService, log),
		Health: controller.NewHealthController(map[string]controller.Check{
			"postgres": store.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}, log),
	}

	e := handler.NewEcho(log)
	e.Server.ReadHeaderTimeout = 10 * time.Second
	handler.RegisterRoutes(e, controllers, authService, cfg, log)

	tasks.Go(ctx, func(ctx context.Context) error {
		runCleanup(ctx, otpService, log)
		return nil
	})

	serverAddr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	go func() {
		log.Infow("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("HTTP server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Infow("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Application.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Failed to shutdown server gracefully", "error", err)
	}

	if err := tasks.Wait(); err != nil {
		log.Warnw("Background tasks finished with errors", "error", err)
	}

	if err := closeSender(); err != nil {
		log.Warnw("Failed to close OTP delivery", "error", err)
	}

	log.Infow("Server shutdown completed successfully")
}

func connectDB(ctx context.Context, cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var db *sqlx.DB
	attempt := 0
	backoff := retry.WithMaxRetries(30, retry.WithCappedDuration(5*time.Second, retry.NewExponential(500*time.Millisecond)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		conn, err := sqlx.ConnectContext(ctx, "postgres", connStr)
		if err != nil {
			log.Warnw("Database connection attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// runCleanup deletes used and expired OTPs until ctx is canceled
func runCleanup(ctx context.Context, otpService service.OTPService, log *logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := otpService.CleanupExpiredOTPs(ctx)
			if err != nil {
				log.Errorw("Failed to cleanup expired OTPs", "error", err)
				continue
			}
			log.Debugw("OTP cleanup completed", "deleted", deleted)
		}
	}
}
