package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultActivityRetentionDays is the only place the retention window default
// is defined; consumers receive it through config or fall back to it.
const DefaultActivityRetentionDays = 90

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NatsURL     string

	DatabaseMaxOpenConns int
	CORSAllowOrigins     string

	JWTSecret      string
	JWTExpiry      time.Duration
	BcryptCost     int
	LoginRateLimit int

	// Activity logging & audit engine.
	ActivityRetentionDays int
	ActivityLogInConsole  bool
	ActivityChannelBase   string
	DashboardCacheTTL     time.Duration
	DashboardRecentDays   int
	DashboardRecentLimit  int
	DashboardWindowDays   int
	LogChannel            string
}

// ObserverEnabled reports whether lifecycle activity logging is on for this
// process. Batch invocations (one-shot maintenance runs, seeding) skip it so
// bulk writes do not flood the log store; PULSE_ACTIVITY_LOG_IN_CONSOLE
// re-enables it there.
func (c Config) ObserverEnabled(interactive bool) bool {
	return interactive || c.ActivityLogInConsole
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
	v.SetEnvPrefix("PULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Pulse API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("jwt.expiry", "60m")
	v.SetDefault("bcrypt.cost", 12)
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("activity.retention_days", DefaultActivityRetentionDays)
	v.SetDefault("activity.log_in_console", false)
	v.SetDefault("activity.channel_base", "pulse:activity")
	v.SetDefault("dashboard.cache_ttl", "45s")
	v.SetDefault("dashboard.recent_days", 7)
	v.SetDefault("dashboard.recent_limit", 20)
	v.SetDefault("dashboard.window_days", 30)
	v.SetDefault("log.channel", "app")

	ttl, err := time.ParseDuration(v.GetString("dashboard.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	expiry, err := time.ParseDuration(v.GetString("jwt.expiry"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt expiry: %w", err)
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NatsURL:               v.GetString("nats.url"),
		DatabaseMaxOpenConns:  v.GetInt("database.max_open_conns"),
		CORSAllowOrigins:      v.GetString("cors.allow_origins"),
		JWTSecret:             v.GetString("jwt.secret"),
		JWTExpiry:             expiry,
		BcryptCost:            v.GetInt("bcrypt.cost"),
		LoginRateLimit:        v.GetInt("login.rate_limit"),
		ActivityRetentionDays: v.GetInt("activity.retention_days"),
		ActivityLogInConsole:  v.GetBool("activity.log_in_console"),
		ActivityChannelBase:   v.GetString("activity.channel_base"),
		DashboardCacheTTL:     ttl,
		DashboardRecentDays:   v.GetInt("dashboard.recent_days"),
		DashboardRecentLimit:  v.GetInt("dashboard.recent_limit"),
		DashboardWindowDays:   v.GetInt("dashboard.window_days"),
		LogChannel:            v.GetString("log.channel"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ActivityRetentionDays <= 0 {
		cfg.ActivityRetentionDays = DefaultActivityRetentionDays
	}

	if cfg.DashboardRecentDays <= 0 {
		cfg.DashboardRecentDays = 7
	}

	if cfg.DashboardRecentLimit <= 0 {
		cfg.DashboardRecentLimit = 20
	}

	if cfg.DashboardWindowDays <= 0 {
		cfg.DashboardWindowDays = 30
	}

	if cfg.BcryptCost < 10 || cfg.BcryptCost > 15 {
		cfg.BcryptCost = 12
	}

	return cfg, nil
}
