package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"worklog-approval-system/shared/cachex"
	"worklog-approval-system/shared/config"
	"worklog-approval-system/shared/events"
	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/influxx"
	"worklog-approval-system/shared/logx"
	"worklog-approval-system/shared/metricsx"
	"worklog-approval-system/shared/mqx"
	"worklog-approval-system/shared/observability"
)

func main() {
	cfg, problems := config.Load("timesheet-consumer", 8084)
	version := strings.TrimSpace(os.Getenv("VERSION"))
	logger := logx.New(cfg.ServiceName, cfg.Env, version, cfg.LogLevel)

	if len(cfg.KafkaBrokers) == 0 {
		problems = append(problems, config.Problem{Field: "KAFKA_BROKERS", Message: "KAFKA_BROKERS is required"})
	}
	if cfg.KafkaGroupID == "" {
		problems = append(problems, config.Problem{Field: "KAFKA_CONSUMER_GROUP", Message: "KAFKA_CONSUMER_GROUP is required"})
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

	var cacheClient *cachex.Client
	var err error
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

	var influxClient *influxx.Client
	if cfg.InfluxURL != "" && cfg.InfluxToken != "" && cfg.InfluxOrg != "" && cfg.InfluxBucket != "" {
		influxClient, err = influxx.New(cfg)
		if err != nil {
			logger.Warn(context.Background(), "influx_init_failed", "influx init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("error", err.Error()),
			)
		}
	}
	if influxClient != nil {
		defer influxClient.Close()
	}

	handler := &telemetryHandler{
		cache:    cacheClient,
		influx:   influxClient,
		startDay: cfg.FiscalMonthStartDay,
		logger:   logger,
	}

	readers := make(map[string]*kafka.Reader, 3)
	for _, topic := range []string{events.TopicSubmissions, events.TopicApprovalDecisions, events.TopicRejections} {
		reader, err := mqx.NewConsumer(cfg, topic, cfg.KafkaGroupID)
		if err != nil {
			logger.Error(context.Background(), "kafka_init_failed", "consumer init failed",
				slog.String("error_code", "FAILED_PRECONDITION"),
				slog.String("topic", topic),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		defer reader.Close()
		readers[topic] = reader
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var wg sync.WaitGroup
	for topic, reader := range readers {
		wg.Add(1)
		go func(topic string, reader *kafka.Reader) {
			defer wg.Done()
			runConsumer(ctx, reader, cfg.KafkaGroupID, handler, logger)
		}(topic, reader)
	}

	logger.Info(context.Background(), "consumer_start", "timesheet consumer started",
		slog.String("group_id", cfg.KafkaGroupID),
	)
	wg.Wait()
	logger.Info(context.Background(), "consumer_stop", "timesheet consumer stopped")
}

func runConsumer(ctx context.Context, reader *kafka.Reader, groupID string, handler *telemetryHandler, logger logx.Logger) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error(ctx, "kafka_fetch_failed", "failed to fetch message",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		_, span := otel.Tracer("mqx").Start(ctx, "kafka.consume")
		span.SetAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		)
		if err := handler.handle(ctx, msg.Topic, msg.Value); err != nil {
			span.End()
			logger.Error(ctx, "event_handle_failed", "failed to handle event",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("topic", msg.Topic),
				slog.String("error", err.Error()),
			)
			continue
		}
		span.End()
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "kafka_commit_failed", "failed to commit message",
				slog.String("error_code", "INTERNAL_ERROR"),
				slog.String("error", err.Error()),
			)
		}
		stats := reader.Stats()
		metricsx.SetKafkaLag(stats.Topic, groupID, stats.Lag)
	}
}

// telemetryHandler turns published workflow facts into Influx points and
// drops cached calendar months whose underlying data just changed.
type telemetryHandler struct {
	cache    *cachex.Client
	influx   *influxx.Client
	startDay int
	logger   logx.Logger
}

func (h *telemetryHandler) handle(ctx context.Context, topic string, payload []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return err
	}
	switch topic {
	case events.TopicSubmissions:
		var submission events.Submission
		if err := json.Unmarshal(envelope.Payload, &submission); err != nil {
			return err
		}
		h.writePoint(ctx, "timesheet_submissions", map[string]string{
			"event_type": envelope.EventType,
		}, map[string]any{
			"entry_count":   len(submission.EntryIDs),
			"absence_count": len(submission.AbsenceIDs),
		}, envelope.OccurredAt)
		h.invalidateCalendar(ctx, submission.MemberID.String(), submission.FiscalMonth, submission.WorkDate)
	case events.TopicApprovalDecisions, events.TopicRejections:
		var decision events.ApprovalDecision
		if err := json.Unmarshal(envelope.Payload, &decision); err != nil {
			return err
		}
		h.writePoint(ctx, "timesheet_decisions", map[string]string{
			"event_type": envelope.EventType,
			"decision":   decision.Decision,
		}, map[string]any{
			"entry_count":   len(decision.EntryIDs),
			"absence_count": len(decision.AbsenceIDs),
			"total_hours":   decision.TotalHours,
		}, envelope.OccurredAt)
		h.invalidateCalendar(ctx, decision.MemberID.String(), decision.FiscalMonth, decision.WorkDate)
	}
	return nil
}

func (h *telemetryHandler) writePoint(ctx context.Context, measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if h.influx == nil {
		return
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := h.influx.WritePoint(ctx, measurement, tags, fields, at); err != nil {
		metricsx.IncInfluxWriteFailure()
		h.logger.Warn(ctx, "influx_write_failed", "influx write failed",
			slog.String("measurement", measurement),
			slog.String("error", err.Error()),
		)
	}
}

// invalidateCalendar drops the cached month so the next read repopulates it
// after the rebuild job catches up.
func (h *telemetryHandler) invalidateCalendar(ctx context.Context, memberID string, fiscalMonth string, workDate string) {
	if h.cache == nil {
		return
	}
	month := fiscalMonth
	if month == "" && workDate != "" {
		if day, err := time.Parse("2006-01-02", workDate); err == nil {
			month = fiscal.MonthOf(day, h.startDay).String()
		}
	}
	if month == "" {
		return
	}
	_ = h.cache.Delete(ctx, "timesheet:calendar:"+memberID+":"+month)
}
