package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Compute   ComputeConfig
	Storage   StorageConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type AuthConfig struct {
	Secret string // empty disables bearer auth
}

// ComputeConfig describes how to reach the named render worker. When APIBase
// is set, the machines API is used to get-or-create the named instance;
// otherwise WorkerURL is used as-is (local development).
type ComputeConfig struct {
	AppName          string
	MachineName      string
	WorkerURL        string
	WorkerPort       int
	APIBase          string
	APIToken         string
	Image            string
	RequestBudgetSec int // one render, end to end
	QuiescenceSec    int // idle window before the instance may stop itself
}

type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// HasCredentials reports whether the gateway holds storage credentials it can
// delegate to the worker. Checked fresh on every request so rotated secrets
// take effect without a restart.
func (s *StorageConfig) HasCredentials() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != "" && s.BucketName != ""
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RenderPerHour int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("AUTH_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")
	readSecret("COMPUTE_API_TOKEN")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("auth.secret", "AUTH_SECRET")
	_ = viper.BindEnv("compute.app_name", "COMPUTE_APP_NAME")
	_ = viper.BindEnv("compute.machine_name", "COMPUTE_MACHINE_NAME")
	_ = viper.BindEnv("compute.worker_url", "COMPUTE_WORKER_URL")
	_ = viper.BindEnv("compute.worker_port", "COMPUTE_WORKER_PORT")
	_ = viper.BindEnv("compute.api_base", "COMPUTE_API_BASE")
	_ = viper.BindEnv("compute.api_token", "COMPUTE_API_TOKEN")
	_ = viper.BindEnv("compute.image", "COMPUTE_IMAGE")
	_ = viper.BindEnv("compute.request_budget_sec", "COMPUTE_REQUEST_BUDGET_SEC")
	_ = viper.BindEnv("compute.quiescence_sec", "COMPUTE_QUIESCENCE_SEC")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.render_per_hour", "RATELIMIT_RENDER_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("compute.app_name", "render-worker")
	viper.SetDefault("compute.machine_name", "renderer")
	viper.SetDefault("compute.worker_url", "http://localhost:3001")
	viper.SetDefault("compute.worker_port", 3001)
	viper.SetDefault("compute.request_budget_sec", 300)
	viper.SetDefault("compute.quiescence_sec", 300)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.render_per_hour", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Auth: AuthConfig{
			Secret: viper.GetString("auth.secret"),
		},
		Compute: ComputeConfig{
			AppName:          viper.GetString("compute.app_name"),
			MachineName:      viper.GetString("compute.machine_name"),
			WorkerURL:        viper.GetString("compute.worker_url"),
			WorkerPort:       viper.GetInt("compute.worker_port"),
			APIBase:          viper.GetString("compute.api_base"),
			APIToken:         viper.GetString("compute.api_token"),
			Image:            viper.GetString("compute.image"),
			RequestBudgetSec: viper.GetInt("compute.request_budget_sec"),
			QuiescenceSec:    viper.GetInt("compute.quiescence_sec"),
		},
		Storage: StorageConfig{
			Endpoint:        viper.GetString("storage.endpoint"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicBaseURL:   viper.GetString("storage.public_base_url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			RenderPerHour: viper.GetInt("ratelimit.render_per_hour"),
		},
	}

	return cfg, nil
}
