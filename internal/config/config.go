package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-bot/internal/order/policy"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Policy   PolicyConfig
	Admin    AdminConfig
	Notify   NotifyConfig
	LogLevel string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SeedDemo     bool
}

type RedisConfig struct {
	Addr     string
	Enabled  bool
	LockTTL  time.Duration
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type PolicyConfig struct {
	ReserveMinutes int
	ExtendMinutes  int
	MaxExtends     int
	WarnThreshold  int
	BanThreshold   int
	CancelWindow   time.Duration
}

type AdminConfig struct {
	// UserID is the operator's chat identity; 0 disables admin commands.
	UserID int64
}

type NotifyConfig struct {
	QueueSize   int
	SendTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:          getEnv("DB_DSN", "file:shop.db?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			SeedDemo:     getEnvBool("SEED_DEMO_PRODUCTS", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			LockTTL:  getEnvDuration("CONVERSATION_LOCK_TTL", 10*time.Second),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC_OPERATOR", "storefront.operator.notifications"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Policy: PolicyConfig{
			ReserveMinutes: getEnvInt("RESERVE_MINUTES", 60),
			ExtendMinutes:  getEnvInt("EXTEND_MINUTES", 30),
			MaxExtends:     getEnvInt("MAX_EXTENDS", 1),
			WarnThreshold:  getEnvInt("CANCEL_WARN_THRESHOLD", 2),
			BanThreshold:   getEnvInt("CANCEL_BAN_THRESHOLD", 15),
			CancelWindow:   getEnvDuration("CANCEL_WINDOW", 24*time.Hour),
		},
		Admin: AdminConfig{
			UserID: getEnvInt64("ADMIN_ID", 0),
		},
		Notify: NotifyConfig{
			QueueSize:   getEnvInt("NOTIFY_QUEUE_SIZE", 256),
			SendTimeout: getEnvDuration("NOTIFY_SEND_TIMEOUT", 3*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}
}

// Rules converts the policy section into the values the order service uses.
func (p PolicyConfig) Rules() policy.Rules {
	return policy.Rules{
		Reservation: policy.Reservation{
			ReserveWindow: time.Duration(p.ReserveMinutes) * time.Minute,
			ExtendWindow:  time.Duration(p.ExtendMinutes) * time.Minute,
			MaxExtends:    p.MaxExtends,
		},
		Abuse: policy.Abuse{
			Window:        p.CancelWindow,
			WarnThreshold: p.WarnThreshold,
			BanThreshold:  p.BanThreshold,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
