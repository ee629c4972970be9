package metricsx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	eventsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_events_appended_total",
			Help: "Domain events appended to the event log by aggregate type.",
		},
		[]string{"aggregate_type"},
	)
	optimisticConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_optimistic_conflicts_total",
			Help: "Appends rejected by the version check by aggregate type.",
		},
		[]string{"aggregate_type"},
	)
	snapshotsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_snapshots_written_total",
			Help: "Aggregate snapshots written by aggregate type.",
		},
		[]string{"aggregate_type"},
	)
	commandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "approval_command_duration_seconds",
			Help:    "Approval workflow command latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	dailyLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worklog_daily_limit_rejections_total",
			Help: "Entry writes rejected by the 24h daily cap.",
		},
	)
	kafkaConsumerLag = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Kafka consumer lag by topic.",
		},
		[]string{"topic", "group"},
	)
	influxWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "influx_write_failures_total",
			Help: "Total InfluxDB write failures.",
		},
	)
	asynqQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asynq_queue_depth",
			Help: "Asynq queue depth by queue.",
		},
		[]string{"queue"},
	)
)

func Register() {
	prometheus.MustRegister(httpRequests, httpLatency, eventsAppended, optimisticConflicts, snapshotsWritten, commandLatency, dailyLimitRejections, kafkaConsumerLag, influxWriteFailures, asynqQueueDepth)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		status := strconv.Itoa(lrw.statusCode)
		httpRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpLatency.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}

func AddEventsAppended(aggregateType string, n int) {
	eventsAppended.WithLabelValues(aggregateType).Add(float64(n))
}

func IncOptimisticConflict(aggregateType string) {
	optimisticConflicts.WithLabelValues(aggregateType).Inc()
}

func IncSnapshotWritten(aggregateType string) {
	snapshotsWritten.WithLabelValues(aggregateType).Inc()
}

func ObserveCommandLatency(command string, d time.Duration) {
	commandLatency.WithLabelValues(command).Observe(d.Seconds())
}

func IncDailyLimitRejection() {
	dailyLimitRejections.Inc()
}

func SetKafkaLag(topic string, group string, lag int64) {
	kafkaConsumerLag.WithLabelValues(topic, group).Set(float64(lag))
}

func IncInfluxWriteFailure() {
	influxWriteFailures.Inc()
}

func SetAsynqQueueDepth(queue string, depth int) {
	asynqQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
