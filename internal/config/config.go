package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSUrl                string
	EventSubject           string
	JWTSecret              string
	JWTRefreshSecret       string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	RenderCacheTTL         time.Duration
	MaxTemplateUploadMB    int
	HintRateLimit          int
	HintRateWindow         time.Duration
	AIProvider             string
	AIModel                string
	OpenAIAPIKey           string
	AnthropicAPIKey        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LABREPORT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LabReport API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "labreport.report")
	v.SetDefault("cloudinary.folder", "labreport/templates")
	v.SetDefault("render.cache_ttl", "10m")
	v.SetDefault("template.max_upload_mb", 20)
	v.SetDefault("hint.rate_limit", 5)
	v.SetDefault("hint.rate_window", "1m")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")

	ttlString := v.GetString("render.cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid render cache ttl: %w", err)
	}

	windowString := v.GetString("hint.rate_window")
	if windowString == "" {
		windowString = "1m"
	}

	window, err := time.ParseDuration(windowString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid hint rate window: %w", err)
	}

	accessTTL, err := time.ParseDuration(v.GetString("jwt.access_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt access ttl: %w", err)
	}

	refreshTTL, err := time.ParseDuration(v.GetString("jwt.refresh_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt refresh ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSUrl:                v.GetString("nats.url"),
		EventSubject:           v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:         accessTTL,
		RefreshTokenTTL:        refreshTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		RenderCacheTTL:         ttl,
		MaxTemplateUploadMB:    v.GetInt("template.max_upload_mb"),
		HintRateLimit:          v.GetInt("hint.rate_limit"),
		HintRateWindow:         window,
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		AIModel:                v.GetString("ai.model"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt refresh secret must be provided")
	}

	if cfg.MaxTemplateUploadMB <= 0 {
		cfg.MaxTemplateUploadMB = 20
	}

	if cfg.HintRateLimit <= 0 {
		cfg.HintRateLimit = 5
	}

	return cfg, nil
}
