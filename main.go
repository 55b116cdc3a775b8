package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"storefront-bot/internal/analytics"
	"storefront-bot/internal/catalog"
	"storefront-bot/internal/chat"
	"storefront-bot/internal/chat/chat_api"
	chatredis "storefront-bot/internal/chat/redis"
	"storefront-bot/internal/clock"
	"storefront-bot/internal/config"
	"storefront-bot/internal/database"
	"storefront-bot/internal/kafka"
	"storefront-bot/internal/logger"
	"storefront-bot/internal/notify"
	"storefront-bot/internal/order"
	orderdb "storefront-bot/internal/order/db"
	"storefront-bot/internal/profile"
)

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	log.Info("DATABASE", fmt.Sprintf("Opening %s database", cfg.Database.Driver))
	bunDB, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	if err := database.Ping(ctx, bunDB, 5, 2*time.Second); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to database: %v", err))
	}
	log.Info("DATABASE", "✅ Database connection successful")
	return bunDB
}

// connectRedis returns nil when Redis is disabled.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("REDIS", "Redis disabled, using in-process conversation lock")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

// operatorSink picks Kafka when it is enabled and the application log otherwise.
func operatorSink(cfg config.KafkaConfig, log *logger.Logger) (notify.Sink, func()) {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info("KAFKA", "Kafka disabled, operator notifications go to the log")
		return &notify.LogSink{Logger: log}, func() {}
	}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, []string{cfg.Topic}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	producer := kafka.NewProducer(cfg.Brokers, cfg.Topic, log)
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %s", cfg.Topic))
	return notify.NewKafkaSink(producer), func() {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	log.Info("APP", "Starting storefront bot")

	ctx := context.Background()
	clk := clock.System{}

	bunDB := connectDatabase(ctx, cfg, log)
	defer bunDB.Close()
	if err := prepareSchema(ctx, cfg.Database, bunDB, log); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to prepare schema: %v", err))
	}

	products := catalog.NewCatalogService(&catalog.DB{Bun: bunDB}, log)
	if cfg.Database.SeedDemo {
		n, err := products.SeedDemo(ctx)
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to seed demo catalog: %v", err))
		}
		if n > 0 {
			log.Info("DATABASE", fmt.Sprintf("Seeded %d demo products", n))
		}
	}

	sink, closeSink := operatorSink(cfg.Kafka, log)
	dispatcher := notify.NewDispatcher(sink, notify.Options{
		OperatorID:  cfg.Admin.UserID,
		QueueSize:   cfg.Notify.QueueSize,
		SendTimeout: cfg.Notify.SendTimeout,
	}, log, clk)

	var lock chat.Locker
	if redisClient := connectRedis(ctx, cfg.Redis, log); redisClient != nil {
		defer redisClient.Close()
		lock = chatredis.NewConversationLock(redisClient, cfg.Redis.LockTTL, log)
	}

	orders := order.NewOrderService(&orderdb.DB{Bun: bunDB}, products, dispatcher, clk, cfg.Policy.Rules(), log)
	bot := chat.NewBot(profile.NewDB(bunDB, clk), products, orders, lock, cfg.Admin.UserID, log)
	bot.Reports = analytics.NewService(analytics.NewDB(bunDB), clk)
	handler := chat_api.NewHandler(bot, bunDB, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Storefront bot running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}

	dispatcher.Close()
	closeSink()
	log.Info("APP", "✅ Storefront bot shutdown complete")
}
