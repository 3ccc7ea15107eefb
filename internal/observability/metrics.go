package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	webhookOutcomeCounter *prometheus.CounterVec
	depositCreditCounter  *prometheus.CounterVec
	ledgerDriftCounter    prometheus.Counter
	notifyFailureCounter  *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		webhookOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_reconcile_outcomes_total",
			Help: "Webhook reconciliation outcomes per rail",
		}, []string{"rail", "outcome"})

		depositCreditCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deposits_credited_total",
			Help: "Deposits credited to trading accounts",
		}, []string{"rail"})

		ledgerDriftCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_drift_accounts_total",
			Help: "Accounts whose balance diverged from their audit-trail sum",
		})

		notifyFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Best-effort post-commit side effects that failed",
		}, []string{"kind"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			webhookOutcomeCounter,
			depositCreditCounter,
			ledgerDriftCounter,
			notifyFailureCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementWebhookOutcome(rail, outcome string) {
	if webhookOutcomeCounter == nil {
		return
	}
	webhookOutcomeCounter.WithLabelValues(rail, outcome).Inc()
}

func IncrementDepositCredited(rail string) {
	if depositCreditCounter == nil {
		return
	}
	depositCreditCounter.WithLabelValues(rail).Inc()
}

func IncrementLedgerDrift() {
	if ledgerDriftCounter == nil {
		return
	}
	ledgerDriftCounter.Inc()
}

func IncrementNotifyFailure(kind string) {
	if notifyFailureCounter == nil {
		return
	}
	notifyFailureCounter.WithLabelValues(kind).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
