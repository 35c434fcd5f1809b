package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.TimeBudget)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.MaxTimeBudget)
	assert.Equal(t, 15, cfg.Scheduler.GapThresholdMinutes)
	assert.Equal(t, timetable.OpenWorld, cfg.Scheduler.AvailabilityPolicy())
	assert.Equal(t, int64(timetable.DefaultHardWeight), cfg.Scheduler.HardWeight)
	assert.Equal(t, 6, cfg.RateLimit.SolvesPerMinute)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_TIME_BUDGET", "12s")
	t.Setenv("SCHEDULER_CLOSED_WORLD", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 12*time.Second, cfg.Scheduler.TimeBudget)
	assert.Equal(t, timetable.ClosedWorld, cfg.Scheduler.AvailabilityPolicy())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestSchedulerOptionsClampBudget(t *testing.T) {
	s := SchedulerConfig{TimeBudget: 30 * time.Second, MaxTimeBudget: time.Minute, GapThresholdMinutes: 20}

	opts := s.Options(0, 7)
	assert.Equal(t, 30*time.Second, opts.TimeBudget)
	assert.Equal(t, int64(7), opts.Seed)
	assert.Equal(t, 20, opts.Score.GapThresholdMinutes)

	assert.Equal(t, 10*time.Second, s.Options(10*time.Second, 0).TimeBudget)
	assert.Equal(t, time.Minute, s.Options(time.Hour, 0).TimeBudget)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
