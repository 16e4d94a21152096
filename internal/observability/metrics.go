package observability

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WorkflowOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_workflow_operations_total",
			Help: "Confirmation workflow operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	WorkflowOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custody_workflow_operation_duration_seconds",
			Help:    "Duration of confirmation workflow operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RecordStoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_record_store_operations_total",
			Help: "Record store calls by backend, operation and outcome",
		},
		[]string{"store", "operation", "outcome"},
	)

	IntegrationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_integration_calls_total",
			Help: "Calls to mail, file storage and credential providers",
		},
		[]string{"integration", "outcome"},
	)

	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_login_attempts_total",
			Help: "Password gate attempts by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry once per process.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			WorkflowOperationsTotal,
			WorkflowOperationDuration,
			RecordStoreOperationsTotal,
			IntegrationCallsTotal,
			LoginAttemptsTotal,
		)
	})
}

func RecordWorkflowOperation(_ context.Context, operation, outcome string, started time.Time) {
	WorkflowOperationsTotal.WithLabelValues(operation, outcome).Inc()
	WorkflowOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func RecordStoreOperation(_ context.Context, store, operation, outcome string) {
	RecordStoreOperationsTotal.WithLabelValues(store, operation, outcome).Inc()
}

func RecordIntegrationCall(_ context.Context, integration string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	IntegrationCallsTotal.WithLabelValues(integration, outcome).Inc()
}

func RecordLoginAttempt(_ context.Context, outcome string) {
	LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}
