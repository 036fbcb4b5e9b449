package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Client  ClientConfig
	Retry   RetryConfig
	Scratch ScratchConfig
	Kafka   KafkaConfig
	Observ  ObservabilityConfig
}

type ClientConfig struct {
	APIBaseURL     string
	TimeoutSeconds int
	Env            string
	AdminPort      string
}

type RetryConfig struct {
	MaxAttempts int
	DelayMillis int
}

type ScratchConfig struct {
	Backend string // sqlite, redis or memory
	Path    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	timeout, _ := strconv.Atoi(getEnv("API_TIMEOUT_SECONDS", "30"))
	maxAttempts, _ := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "2"))
	delayMillis, _ := strconv.Atoi(getEnv("RETRY_DELAY_MILLIS", "250"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	var brokers []string
	if raw := getEnv("KAFKA_BROKERS", ""); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	cfg := &Config{
		Client: ClientConfig{
			APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:3003"),
			TimeoutSeconds: timeout,
			Env:            getEnv("ENV", "development"),
			AdminPort:      getEnv("ADMIN_PORT", "8080"),
		},
		Retry: RetryConfig{
			MaxAttempts: maxAttempts,
			DelayMillis: delayMillis,
		},
		Scratch: ScratchConfig{
			Backend:       getEnv("SCRATCH_BACKEND", "sqlite"),
			Path:          getEnv("SCRATCH_PATH", "storefront.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			RedisPrefix:   getEnv("REDIS_PREFIX", "storefront"),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   getEnv("KAFKA_TOPIC_ACTIVITY", "storefront-activity"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, api=%s", cfg.Client.Env, cfg.Client.APIBaseURL)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
