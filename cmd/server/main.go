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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sekolah-catering/api/internal/cart"
	"github.com/sekolah-catering/api/internal/config"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/logger"
	"github.com/sekolah-catering/api/internal/payment"
	"github.com/sekolah-catering/api/internal/router"
	"github.com/sekolah-catering/api/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional outside development
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to database")

	// Carts and rate limit counters live in redis when configured
	var (
		rdb   *redis.Client
		carts cart.Store = cart.NewMemoryStore()
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		carts = cart.NewRedisStore(rdb, cfg.CartTTL)
		log.Info("using redis cart store", zap.String("addr", cfg.RedisAddr))
	} else {
		log.Warn("REDIS_ADDR not set, carts are kept in memory")
	}

	hub := ws.NewHub()
	publishers := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
		log.Info("publishing order events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	if cfg.MidtransServerKey == "" {
		log.Warn("MIDTRANS_SERVER_KEY not set, payment sessions will fail")
	}

	r, err := router.New(cfg, router.Deps{
		Queries:   database.New(pool),
		Pool:      pool,
		Hub:       hub,
		Carts:     carts,
		Gateway:   payment.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransEnv, cfg.MidtransTimeout),
		Publisher: publishers,
		Redis:     rdb,
		Log:       log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
