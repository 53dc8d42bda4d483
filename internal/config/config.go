package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/hibiken/asynq"
)

type Config struct {
	API      APIConfig
	Queue    QueueConfig
	Worker   WorkerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Webhook  WebhookConfig
	Tracing  TracingConfig
}

type APIConfig struct {
	Addr              string
	RateLimitRequests int
	RateLimitWindowMS int
	PresignTTLMS      int
}

type WebhookConfig struct {
	SigningSecret string
	MaxAttempts   int
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	MetricsAddr        string
	Concurrency        int
	MaxActiveBatches   int
	ImageWorkers       int
	CombinationWorkers int
	ThumbnailBound     int
	LocalOutputDir     string
	OutputPrefix       string
	StagesFile         string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type DatabaseConfig struct {
	DSN string
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

func Load() Config {
	defaultBatchSlots := max(1, runtime.NumCPU()/2)

	return Config{
		API: APIConfig{
			Addr:              env("PIXELFAN_API_ADDR", ":8080"),
			RateLimitRequests: envInt("PIXELFAN_RATE_LIMIT_REQUESTS", 30),
			RateLimitWindowMS: envInt("PIXELFAN_RATE_LIMIT_WINDOW_MS", 60_000),
			PresignTTLMS:      envInt("PIXELFAN_PRESIGN_TTL_MS", 900_000),
		},
		Queue: QueueConfig{
			RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
			RedisPassword: env("REDIS_PASSWORD", ""),
			RedisDB:       envInt("REDIS_DB", 0),
			Name:          env("PIXELFAN_QUEUE", "default"),
		},
		Worker: WorkerConfig{
			MetricsAddr:        env("WORKER_METRICS_ADDR", ":9090"),
			Concurrency:        envInt("WORKER_CONCURRENCY", max(2, runtime.NumCPU())),
			MaxActiveBatches:   envInt("WORKER_MAX_ACTIVE_BATCHES", defaultBatchSlots),
			ImageWorkers:       envInt("WORKER_IMAGE_WORKERS", runtime.NumCPU()),
			CombinationWorkers: envInt("WORKER_COMBINATION_WORKERS", runtime.NumCPU()),
			ThumbnailBound:     envInt("WORKER_THUMBNAIL_BOUND", 512),
			LocalOutputDir:     env("WORKER_LOCAL_OUTPUT_DIR", "./.pixelfan-output"),
			OutputPrefix:       env("WORKER_OUTPUT_PREFIX", "outputs"),
			StagesFile:         env("PIXELFAN_STAGES_FILE", ""),
		},
		Storage: StorageConfig{
			Endpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env("MINIO_BUCKET", "pixelfan-batches"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
		},
		Database: DatabaseConfig{
			DSN: env("POSTGRES_DSN", ""),
		},
		Webhook: WebhookConfig{
			SigningSecret: env("PIXELFAN_WEBHOOK_SECRET", ""),
			MaxAttempts:   envInt("PIXELFAN_WEBHOOK_MAX_ATTEMPTS", 3),
		},
		Tracing: TracingConfig{
			Exporter:     env("PIXELFAN_TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("PIXELFAN_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("PIXELFAN_OTLP_INSECURE", false),
			SampleRatio:  envFloat("PIXELFAN_TRACE_SAMPLE_RATIO", 1),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
