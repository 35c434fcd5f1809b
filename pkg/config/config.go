package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable solver and its job queue.
type SchedulerConfig struct {
	Enabled             bool
	TimeBudget          time.Duration
	MaxTimeBudget       time.Duration
	ResultTTL           time.Duration
	Workers             int
	QueueSize           int
	GapThresholdMinutes int
	ClosedWorld         bool
	SwapProbability     float64
	InitialTemperature  float64
	FinalTemperature    float64
	HardWeight          int64
}

// RateLimitConfig bounds how often solve jobs may be submitted per client.
type RateLimitConfig struct {
	SolvesPerMinute int
	Burst           int
}

// Options converts the scheduler section into solver options. budget overrides the
// configured default when positive and is clamped to MaxTimeBudget.
func (s SchedulerConfig) Options(budget time.Duration, seed int64) timetable.Options {
	if budget <= 0 {
		budget = s.TimeBudget
	}
	if s.MaxTimeBudget > 0 && budget > s.MaxTimeBudget {
		budget = s.MaxTimeBudget
	}
	return timetable.Options{
		SolverConfig: timetable.SolverConfig{
			TimeBudget:         budget,
			Seed:               seed,
			InitialTemperature: s.InitialTemperature,
			FinalTemperature:   s.FinalTemperature,
			HardWeight:         s.HardWeight,
			SwapProbability:    s.SwapProbability,
			Score:              timetable.ScoreConfig{GapThresholdMinutes: s.GapThresholdMinutes},
		},
		Diagnostics: true,
	}
}

// AvailabilityPolicy returns the policy for windows without any availability record.
func (s SchedulerConfig) AvailabilityPolicy() timetable.AvailabilityPolicy {
	if s.ClosedWorld {
		return timetable.ClosedWorld
	}
	return timetable.OpenWorld
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("ENABLE_DATABASE"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:             v.GetBool("ENABLE_SCHEDULER"),
		TimeBudget:          parseDuration(v.GetString("SCHEDULER_TIME_BUDGET"), 30*time.Second),
		MaxTimeBudget:       parseDuration(v.GetString("SCHEDULER_MAX_TIME_BUDGET"), 5*time.Minute),
		ResultTTL:           parseDuration(v.GetString("SCHEDULER_RESULT_TTL"), 30*time.Minute),
		Workers:             v.GetInt("SCHEDULER_WORKERS"),
		QueueSize:           v.GetInt("SCHEDULER_QUEUE_SIZE"),
		GapThresholdMinutes: v.GetInt("SCHEDULER_GAP_THRESHOLD_MINUTES"),
		ClosedWorld:         v.GetBool("SCHEDULER_CLOSED_WORLD"),
		SwapProbability:     v.GetFloat64("SCHEDULER_SWAP_PROBABILITY"),
		InitialTemperature:  v.GetFloat64("SCHEDULER_INITIAL_TEMPERATURE"),
		FinalTemperature:    v.GetFloat64("SCHEDULER_FINAL_TEMPERATURE"),
		HardWeight:          v.GetInt64("SCHEDULER_HARD_WEIGHT"),
	}

	cfg.RateLimit = RateLimitConfig{
		SolvesPerMinute: v.GetInt("SOLVE_RATE_PER_MINUTE"),
		Burst:           v.GetInt("SOLVE_RATE_BURST"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_DATABASE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_TIME_BUDGET", "30s")
	v.SetDefault("SCHEDULER_MAX_TIME_BUDGET", "5m")
	v.SetDefault("SCHEDULER_RESULT_TTL", "30m")
	v.SetDefault("SCHEDULER_WORKERS", 2)
	v.SetDefault("SCHEDULER_QUEUE_SIZE", 16)
	v.SetDefault("SCHEDULER_GAP_THRESHOLD_MINUTES", timetable.DefaultGapThresholdMinutes)
	v.SetDefault("SCHEDULER_CLOSED_WORLD", false)
	v.SetDefault("SCHEDULER_SWAP_PROBABILITY", timetable.DefaultSwapProbability)
	v.SetDefault("SCHEDULER_INITIAL_TEMPERATURE", timetable.DefaultInitialTemperature)
	v.SetDefault("SCHEDULER_FINAL_TEMPERATURE", timetable.DefaultFinalTemperature)
	v.SetDefault("SCHEDULER_HARD_WEIGHT", timetable.DefaultHardWeight)

	v.SetDefault("SOLVE_RATE_PER_MINUTE", 6)
	v.SetDefault("SOLVE_RATE_BURST", 2)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
