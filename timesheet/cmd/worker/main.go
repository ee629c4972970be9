package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"worklog-approval-system/shared/cachex"
	"worklog-approval-system/shared/config"
	"worklog-approval-system/shared/dbx"
	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/httpx"
	"worklog-approval-system/shared/lockx"
	"worklog-approval-system/shared/logx"
	"worklog-approval-system/shared/metricsx"
	"worklog-approval-system/shared/mqx"
	"worklog-approval-system/shared/observability"
	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/repos"
)

const (
	taskOutboxScan      = "outbox.scan"
	taskOutboxDispatch  = "outbox.dispatch"
	taskOutboxRelease   = "outbox.release"
	taskCalendarRebuild = "calendar.rebuild"
	taskSnapshotCompact = "snapshot.compact"

	staleClaimMaxAge = 5 * time.Minute
)

type dispatchPayload struct {
	EventID string `json:"event_id"`
}

func main() {
	cfg, problems := config.Load("timesheet-worker", 8083)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		problems = append(problems, config.Problem{Field: "DATABASE_URL", Message: "DATABASE_URL is required"})
	}
	if cfg.AsynqRedisAddr == "" {
		problems = append(problems, config.Problem{Field: "ASYNQ_REDIS_ADDR", Message: "ASYNQ_REDIS_ADDR is required"})
	}
	if len(cfg.KafkaBrokers) == 0 {
		problems = append(problems, config.Problem{Field: "KAFKA_BROKERS", Message: "KAFKA_BROKERS is required"})
	}
	if len(problems) > 0 {
		logger.Error(context.Background(), "config_invalid", "invalid config",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.Any("problems", problems),
		)
		os.Exit(1)
	}

	if cfg.OtelEnabled {
		if shutdown, err := observability.InitTracer(context.Background(), observability.TracerConfig{
			ServiceName: cfg.ServiceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OtelEndpoint,
			Insecure:    cfg.OtelInsecure,
			SampleRatio: cfg.OtelSampleRatio,
		}); err == nil {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	dbPool, err := dbx.NewPool(cfg)
	if err != nil {
		logger.Error(context.Background(), "db_init_failed", "db init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer dbPool.Close()

	outboxRepo := repos.NewOutboxRepo()
	calendarRepo := repos.NewCalendarRepo()
	compactors := map[string]interface {
		CompactSnapshots(ctx context.Context, db repos.DBTX, limit int) (int, error)
	}{
		domain.AggregateTypeWorkLog:  repos.NewWorkLogRepository(cfg.SnapshotEvery),
		domain.AggregateTypeAbsence:  repos.NewAbsenceRepository(cfg.SnapshotEvery),
		domain.AggregateTypeApproval: repos.NewApprovalRepository(cfg.SnapshotEvery),
	}
	producer, err := mqx.NewProducer(cfg)
	if err != nil {
		logger.Error(context.Background(), "kafka_init_failed", "kafka producer init failed",
			slog.String("error_code", "FAILED_PRECONDITION"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer producer.Close()

	var cacheClient *cachex.Client
	if cfg.RedisAddr != "" {
		cacheClient, err = cachex.New(cfg)
		if err != nil {
			logger.Warn(context.Background(), "redis_init_failed", "redis init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		}
	}
	if cacheClient != nil {
		defer cacheClient.Close()
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.AsynqRedisAddr,
		Password: cfg.AsynqRedisPass,
		DB:       cfg.AsynqRedisDB,
	}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues: map[string]int{
			cfg.AsynqQueue: 1,
		},
	})
	defer server.Shutdown()

	mux := asynq.NewServeMux()
	mux.HandleFunc(taskOutboxScan, func(ctx context.Context, t *asynq.Task) error {
		events, err := outboxRepo.ClaimPending(ctx, dbPool, cfg.ServiceName, cfg.OutboxBatchSize)
		if err != nil {
			return err
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		for _, event := range events {
			payload, _ := json.Marshal(dispatchPayload{EventID: event.EventID.String()})
			task := asynq.NewTask(taskOutboxDispatch, payload, asynq.Queue(cfg.AsynqQueue))
			if _, err := client.Enqueue(task); err != nil {
				logger.Error(ctx, "enqueue_failed", "failed to enqueue outbox dispatch",
					slog.String("error_code", "INTERNAL_ERROR"),
					slog.String("error", err.Error()),
				)
				attempts := event.Attempts + 1
				nextRetry := time.Now().UTC().Add(retryDelay(attempts))
				_ = outboxRepo.MarkFailed(ctx, dbPool, event.EventID, attempts, &nextRetry, err.Error(), attempts >= cfg.OutboxMaxAttempts)
			}
		}
		return nil
	})
	mux.HandleFunc(taskOutboxDispatch, func(ctx context.Context, t *asynq.Task) error {
		ctx, span := otel.Tracer("asynq").Start(ctx, "outbox.dispatch")
		span.SetAttributes(attribute.String("queue", cfg.AsynqQueue))
		defer span.End()
		var payload dispatchPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		eventID, err := uuid.Parse(strings.TrimSpace(payload.EventID))
		if err != nil {
			return err
		}
		event, err := outboxRepo.GetByID(ctx, dbPool, eventID)
		if err != nil {
			return err
		}
		if event.Status == repos.OutboxStatusDelivered || event.Status == repos.OutboxStatusDead {
			return nil
		}
		headers := map[string]string{
			"event_id":       event.EventID.String(),
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
			"published_at":   time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := producer.Publish(ctx, event.Topic, []byte(event.AggregateID.String()), event.Payload, headers); err != nil {
			attempts := event.Attempts + 1
			nextRetry := time.Now().UTC().Add(retryDelay(attempts))
			dead := attempts >= cfg.OutboxMaxAttempts
			_ = outboxRepo.MarkFailed(ctx, dbPool, event.EventID, attempts, &nextRetry, err.Error(), dead)
			if dead {
				logger.Warn(ctx, "outbox_dead", "outbox event moved to dead-letter",
					slog.String("event_id", event.EventID.String()),
					slog.Int("attempts", attempts),
				)
				return nil
			}
			return err
		}
		if err := outboxRepo.MarkDelivered(ctx, dbPool, event.EventID); err != nil {
			return err
		}
		return nil
	})
	mux.HandleFunc(taskOutboxRelease, func(ctx context.Context, t *asynq.Task) error {
		released, err := outboxRepo.ReleaseStale(ctx, dbPool, staleClaimMaxAge)
		if err != nil {
			return err
		}
		if released > 0 {
			logger.Info(ctx, "outbox_released", "released stale outbox claims",
				slog.Int("released", released),
			)
		}
		return nil
	})
	mux.HandleFunc(taskCalendarRebuild, func(ctx context.Context, t *asynq.Task) error {
		ctx, span := otel.Tracer("asynq").Start(ctx, "calendar.rebuild")
		defer span.End()
		if cacheClient != nil {
			lock, ok, err := lockx.Acquire(ctx, cacheClient.Client(), lockx.JobKey(taskCalendarRebuild), time.Minute)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			defer func() { _ = lockx.Release(ctx, cacheClient.Client(), lock) }()
		}
		now := time.Now().UTC()
		current := fiscal.MonthOf(now, cfg.FiscalMonthStartDay)
		for _, month := range []fiscal.Month{prevMonth(current), current} {
			if err := rebuildMonth(ctx, dbPool, calendarRepo, cacheClient, cfg, month, logger); err != nil {
				return err
			}
		}
		return nil
	})

	mux.HandleFunc(taskSnapshotCompact, func(ctx context.Context, t *asynq.Task) error {
		for aggregateType, repo := range compactors {
			written, err := repo.CompactSnapshots(ctx, dbPool, 100)
			if err != nil {
				return err
			}
			if written > 0 {
				logger.Info(ctx, "snapshots_compacted", "snapshots refreshed",
					slog.String("aggregate_type", aggregateType),
					slog.Int("written", written),
				)
			}
		}
		return nil
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})
	defer scheduler.Shutdown()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	schedules := map[string]string{
		taskOutboxScan:      "@every " + strconv.Itoa(cfg.OutboxScanSec) + "s",
		taskOutboxRelease:   "@every 60s",
		taskCalendarRebuild: "@every 60s",
		taskSnapshotCompact: "@every 300s",
	}
	for task, cron := range schedules {
		if _, err := scheduler.Register(cron, asynq.NewTask(task, nil, asynq.Queue(cfg.AsynqQueue))); err != nil {
			logger.Error(context.Background(), "scheduler_init_failed", "scheduler init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("task", task),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}
	if err := scheduler.Start(); err != nil {
		logger.Error(context.Background(), "scheduler_start_failed", "scheduler start failed",
			slog.String("error_code", "INTERNAL_ERROR"),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			info, err := inspector.GetQueueInfo(cfg.AsynqQueue)
			if err != nil {
				continue
			}
			metricsx.SetAsynqQueueDepth(cfg.AsynqQueue, info.Size)
		}
	}()

	metricsx.Register()
	opsMux := http.NewServeMux()
	opsMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": cfg.ServiceName,
			"env":     cfg.Env,
			"version": version,
		})
	})
	opsMux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbx.Ping(r.Context(), dbPool); err != nil {
			httpx.WriteError(w, r, http.StatusServiceUnavailable, "FAILED_PRECONDITION",
				"service not ready: database unavailable", map[string]any{"problem": "db_ping_failed"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ready",
			"service": cfg.ServiceName,
			"env":     cfg.Env,
			"version": version,
		})
	})
	opsMux.Handle("GET /metrics", metricsx.Handler())

	var opsHandler http.Handler = opsMux
	opsHandler = httpx.WithRequestID(opsHandler)
	opsHandler = httpx.WithRecover(logger, opsHandler)
	opsHandler = httpx.WithRequestLog(logger, httpx.RequestLogOptions{
		SkipPaths: map[string]bool{"/healthz": true, "/metrics": true},
	}, opsHandler)
	opsServer := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.HTTPPort)),
		Handler:           opsHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "ops_server_failed", "ops server failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "worker_start", "timesheet worker started",
			slog.String("queue", cfg.AsynqQueue),
			slog.Int("concurrency", cfg.AsynqConcurrency),
		)
		errCh <- server.Run(mux)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info(context.Background(), "shutdown_signal", "received signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, asynq.ErrServerClosed) {
			logger.Error(context.Background(), "worker_failed", "worker failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(context.Background(), "shutdown_failed", "ops server shutdown failed",
			slog.String("error_code", "INTERNAL_ERROR"),
			slog.String("error", err.Error()),
		)
	}
	logger.Info(context.Background(), "worker_stop", "timesheet worker stopped")
}

func rebuildMonth(ctx context.Context, pool repos.DBTX, calendarRepo *repos.CalendarRepo, cacheClient *cachex.Client, cfg config.Config, month fiscal.Month, logger logx.Logger) error {
	members, err := calendarRepo.StaleMembers(ctx, pool, month, cfg.FiscalMonthStartDay, 100)
	if err != nil {
		return err
	}
	for _, memberID := range members {
		if err := calendarRepo.RebuildMonth(ctx, pool, memberID, month, cfg.FiscalMonthStartDay); err != nil {
			logger.Error(ctx, "calendar_rebuild_failed", "calendar rebuild failed",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("member_id", memberID.String()),
				slog.String("fiscal_month", month.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if cacheClient != nil {
			days, err := calendarRepo.ListMonth(ctx, pool, memberID, month)
			if err == nil {
				key := "timesheet:calendar:" + memberID.String() + ":" + month.String()
				_ = cacheClient.SetJSON(ctx, key, days, time.Duration(cfg.CalendarCacheTTLSec)*time.Second)
			}
		}
		logger.Info(ctx, "calendar_rebuilt", "calendar month rebuilt",
			slog.String("member_id", memberID.String()),
			slog.String("fiscal_month", month.String()),
		)
	}
	return nil
}

func prevMonth(m fiscal.Month) fiscal.Month {
	if m.Month == time.January {
		return fiscal.Month{Year: m.Year - 1, Month: time.December}
	}
	return fiscal.Month{Year: m.Year, Month: m.Month - 1}
}

func retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 5 * time.Second
	}
	delay := time.Duration(attempt*attempt) * 5 * time.Second
	if delay > 5*time.Minute {
		return 5 * time.Minute
	}
	return delay
}
