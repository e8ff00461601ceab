// Package metrics はプロセス共通のprometheusレジストリ。
// 起動時に1つ作り、リクエストごとに加算し、/metricsで読む。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ProcessTimeHeader = "X-Process-Time"

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: service + "_service_requests_total",
			Help: "Total requests handled by the " + service + " service.",
		}, []string{"method", "endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    service + "_service_request_duration_seconds",
			Help:    "Request latency of the " + service + " service.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// リクエスト数と処理時間を記録し、X-Process-Timeを付ける
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			res := c.Response()
			res.Before(func() {
				res.Header().Set(ProcessTimeHeader, strconv.FormatFloat(time.Since(start).Seconds(), 'f', 6, 64))
			})

			if err := next(c); err != nil {
				//ステータスを確定させるためここで書く
				c.Error(err)
			}

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, endpoint, strconv.Itoa(res.Status)).Inc()
			m.duration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// 結果ラベル1つのカウンタ（payments_processed_total{status} など）
type OutcomeCounter struct {
	vec *prometheus.CounterVec
}

func (m *Metrics) NewOutcomeCounter(name string, help string, label string) *OutcomeCounter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{label})
	m.registry.MustRegister(vec)
	return &OutcomeCounter{vec: vec}
}

func (c *OutcomeCounter) Inc(value string) {
	c.vec.WithLabelValues(value).Inc()
}
