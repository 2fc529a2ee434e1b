package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/guard"
)

const namespace = "mentora"

// Metrics holds the Prometheus collectors of the duel service.
type Metrics struct {
	registry        *prometheus.Registry
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Answers         *prometheus.CounterVec
	Completions     *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Suspicion       *prometheus.HistogramVec
}

var (
	_ duel.Observer  = (*Metrics)(nil)
	_ guard.Observer = (*Metrics)(nil)
)

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		Answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duel_answers_total",
				Help:      "Recorded duel answers",
			},
			[]string{"correct"},
		),
		Completions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duels_completed_total",
				Help:      "Completed duels",
			},
			[]string{"outcome"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by a rate-limit policy",
			},
			[]string{"policy"},
		),
		Suspicion: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "suspicion_score",
				Help:      "Suspicion scores of answering students",
				Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"action"},
		),
	}
}

func (m *Metrics) AnswerRecorded(correct bool) {
	m.Answers.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) DuelCompleted(outcome duel.Outcome) {
	m.Completions.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) RateLimited(policy string) {
	m.Rejections.WithLabelValues(policy).Inc()
}

func (m *Metrics) SuspicionScored(score int, action string) {
	m.Suspicion.WithLabelValues(action).Observe(float64(score))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts and times requests by route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err) // commit the response so the status is known
			}

			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(ctx.Response().Status)
			m.RequestCounter.WithLabelValues(ctx.Request().Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(ctx.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
