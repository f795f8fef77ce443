// Package metrics содержит метрики Prometheus сервиса сверки наличных.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "cashdesk_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	countsSubmitted   *prometheus.CounterVec
	alertsCreated     prometheus.Counter
	notifications     *prometheus.CounterVec
	historyQueries    *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
)

// Init регистрирует метрики сервиса в реестре по умолчанию. Повторные вызовы ничего не делают.
func Init() {
	registerOnce.Do(func() {
		countsSubmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "counts_submitted_total",
				Help: "Total operator counts by resulting check-in status",
			},
			[]string{"status"},
		)
		alertsCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_created_total",
				Help: "Total discrepancy alerts created",
			},
		)
		notifications = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total notification emails by result",
			},
			[]string{"result"},
		)
		historyQueries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "history_queries_total",
				Help: "Total history queries by result",
			},
			[]string{"result"},
		)
		reconcileDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "reconcile_latency_seconds",
				Help:    "Count submission transaction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			countsSubmitted,
			alertsCreated,
			notifications,
			historyQueries,
			reconcileDuration,
		)
	})
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCountSubmitted учитывает сохранённый пересчёт с итоговым статусом планиллы.
func IncCountSubmitted(status string) {
	if status == "" {
		status = "unknown"
	}
	if countsSubmitted != nil {
		countsSubmitted.WithLabelValues(status).Inc()
	}
}

// IncAlertCreated учитывает созданный алерт о расхождении.
func IncAlertCreated() {
	if alertsCreated != nil {
		alertsCreated.Inc()
	}
}

// IncNotification учитывает отправку письма.
func IncNotification(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if notifications != nil {
		notifications.WithLabelValues(result).Inc()
	}
}

// IncHistoryQuery учитывает запрос истории.
func IncHistoryQuery(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if historyQueries != nil {
		historyQueries.WithLabelValues(result).Inc()
	}
}

// ObserveReconcile записывает длительность транзакции пересчёта.
func ObserveReconcile(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if reconcileDuration != nil {
		reconcileDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// Result возвращает метку результата по ошибке.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
