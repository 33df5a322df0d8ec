package mempool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring the mempool.
var (
	poolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of transactions currently pooled",
			Name:      "mempool_size",
			Namespace: "strata",
		},
	)
	admissionResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "push_transaction outcomes by return code",
			Name:      "mempool_admission_total",
			Namespace: "strata",
		},
		[]string{"code"},
	)
	minedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Pooled transactions removed because they were mined",
			Name:      "mempool_mined_total",
			Namespace: "strata",
		},
	)
	evictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Pooled transactions removed without being mined",
			Name:      "mempool_evicted_total",
			Namespace: "strata",
		},
	)
	restoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Transactions re-admitted from reverted blocks",
			Name:      "mempool_restored_total",
			Namespace: "strata",
		},
	)
	lostOnRebranch = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Reverted-block transactions that no longer validated at the new head",
			Name:      "mempool_lost_on_rebranch",
			Namespace: "strata",
		},
	)
)

func init() {
	prometheus.MustRegister(
		poolSize,
		admissionResults,
		minedTotal,
		evictedTotal,
		restoredTotal,
		lostOnRebranch,
	)
}

func updatePoolSizeMetric(size int) {
	poolSize.Set(float64(size))
}

func updateAdmissionMetric(code ReturnCode) {
	admissionResults.WithLabelValues(code.String()).Inc()
}

func updateReconciliationMetrics(mined, evicted, restored int) {
	if mined > 0 {
		minedTotal.Add(float64(mined))
	}
	if evicted > 0 {
		evictedTotal.Add(float64(evicted))
	}
	if restored > 0 {
		restoredTotal.Add(float64(restored))
	}
}

func updateLostOnRebranchMetric(total uint64) {
	lostOnRebranch.Set(float64(total))
}
