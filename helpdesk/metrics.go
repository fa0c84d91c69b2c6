package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	dispatchRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helpdesk_dispatch_runs_total",
		Help: "Provisioning runs by final status.",
	}, []string{"status"})

	dispatchStepResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helpdesk_dispatch_step_results_total",
		Help: "Pipeline step outcomes.",
	}, []string{"step", "status"})

	dispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "helpdesk_dispatch_duration_seconds",
		Help:    "Wall time of a provisioning run.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	tokenSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "helpdesk_token_sync_total",
		Help: "CloudRadial token sync attempts per tenant outcome.",
	}, []string{"result"})

	registerMetricsOnce sync.Once
)

func initMetrics() {
	registerMetricsOnce.Do(func() {
		prometheus.MustRegister(dispatchRunsTotal, dispatchStepResultsTotal, dispatchDuration, tokenSyncTotal)
	})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func observeDispatch(status string, elapsed time.Duration) {
	dispatchRunsTotal.WithLabelValues(status).Inc()
	dispatchDuration.Observe(elapsed.Seconds())
}

func observeStep(step string, status StepStatus) {
	dispatchStepResultsTotal.WithLabelValues(step, string(status)).Inc()
}
