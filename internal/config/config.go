package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// Config holds agent configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cloud     CloudConfig
	Capture   CaptureConfig
	Engine    EngineConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string
	Port        string
	Environment string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CloudConfig describes the cloud backend the agent syncs to.
// AuthURL is the token issuer used for silent refresh; WebAppURL hosts
// both the desktop login callback and the sync endpoint.
type CloudConfig struct {
	WebAppURL string
	AuthURL   string
	AnonKey   string
}

// CaptureConfig controls the Steam token capture surface.
type CaptureConfig struct {
	LoginURL string
	Timeout  time.Duration
	Grace    time.Duration
	Headless bool
}

// EngineConfig names the external pairing engine helper the agent supervises.
type EngineConfig struct {
	Command string
	Args    []string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and a .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "7850")
	viper.SetDefault("SERVER_HOST", "127.0.0.1")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("CLOUD_WEB_APP_URL", "https://www.rustinsight.net")
	viper.SetDefault("CAPTURE_LOGIN_URL", "https://companion-rust.facepunch.com/login")
	viper.SetDefault("CAPTURE_TIMEOUT_SECONDS", 300)
	viper.SetDefault("CAPTURE_GRACE_MS", 1500)
	viper.SetDefault("RATE_LIMIT_RPS", 5.0)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Host:        viper.GetString("SERVER_HOST"),
			Port:        viper.GetString("SERVER_PORT"),
			Environment: viper.GetString("SERVER_ENVIRONMENT"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       0,
		},
		Cloud: CloudConfig{
			WebAppURL: strings.TrimRight(viper.GetString("CLOUD_WEB_APP_URL"), "/"),
			AuthURL:   strings.TrimRight(viper.GetString("CLOUD_AUTH_URL"), "/"),
			AnonKey:   viper.GetString("CLOUD_ANON_KEY"),
		},
		Capture: CaptureConfig{
			LoginURL: viper.GetString("CAPTURE_LOGIN_URL"),
			Timeout:  time.Duration(viper.GetInt("CAPTURE_TIMEOUT_SECONDS")) * time.Second,
			Grace:    time.Duration(viper.GetInt("CAPTURE_GRACE_MS")) * time.Millisecond,
			Headless: viper.GetBool("CAPTURE_HEADLESS"),
		},
		Engine: EngineConfig{
			Command: viper.GetString("ENGINE_COMMAND"),
			Args:    strings.Fields(viper.GetString("ENGINE_ARGS")),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.Cloud.AuthURL == "" {
		logger.Warnf("CLOUD_AUTH_URL is not set; silent session refresh is disabled")
	}
	if cfg.Engine.Command == "" {
		logger.Warnf("ENGINE_COMMAND is not set; pairing cannot start until it is configured")
	}

	return cfg, nil
}
