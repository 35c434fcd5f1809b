package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/repository"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/pkg/cache"
	"github.com/noah-isme/sma-timetable/pkg/config"
	"github.com/noah-isme/sma-timetable/pkg/database"
	"github.com/noah-isme/sma-timetable/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

func buildServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the solve workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logr)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	var db *sqlx.DB
	if cfg.Database.Enabled {
		conn, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer conn.Close()
		db = conn
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, solve jobs kept in memory only", zap.Error(err))
		} else {
			redisClient = client
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, "timetable:", logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	sources := service.TimetableSources{}
	var scheduleHandler *handler.ScheduleHandler
	if db != nil {
		scheduleRepo := repository.NewScheduleRepository(db)
		availabilityRepo := repository.NewTeacherAvailabilityRepository(db)
		sources = service.TimetableSources{
			Requirements: repository.NewLessonRequirementRepository(db),
			Classrooms:   repository.NewClassroomRepository(db),
			Availability: availabilityRepo,
			Schedules:    scheduleRepo,
		}
		scheduleSvc := service.NewScheduleService(scheduleRepo, availabilityRepo, cfg.Scheduler.AvailabilityPolicy(), metrics, validate, logr)
		scheduleHandler = handler.NewScheduleHandler(scheduleSvc)
	}

	timetableSvc := service.NewTimetableService(sources, cacheRepo, metrics, validate, logr, service.TimetableServiceConfig{
		Scheduler: cfg.Scheduler,
	})
	timetableSvc.Start(ctx)
	defer timetableSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Timetable:    handler.NewTimetableHandler(timetableSvc, cfg.APIPrefix),
		Schedule:     scheduleHandler,
		Metrics:      handler.NewMetricsHandler(metrics),
		SolveLimiter: internalmiddleware.RateLimit(cfg.RateLimit, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "database", db != nil, "redis", cacheRepo.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
