package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestRecordHelpersIncrementLabels(t *testing.T) {
	ctx := context.Background()

	before := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("rate_limited"))
	RecordLoginAttempt(ctx, "rate_limited")
	if got := testutil.ToFloat64(LoginAttemptsTotal.WithLabelValues("rate_limited")); got != before+1 {
		t.Fatalf("login attempts: expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(IntegrationCallsTotal.WithLabelValues("gmail", "error"))
	RecordIntegrationCall(ctx, "gmail", errors.New("quota"))
	if got := testutil.ToFloat64(IntegrationCallsTotal.WithLabelValues("gmail", "error")); got != before+1 {
		t.Fatalf("integration calls: expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(RecordStoreOperationsTotal.WithLabelValues("airtable", "get", "not_found"))
	RecordStoreOperation(ctx, "airtable", "get", "not_found")
	if got := testutil.ToFloat64(RecordStoreOperationsTotal.WithLabelValues("airtable", "get", "not_found")); got != before+1 {
		t.Fatalf("store operations: expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(WorkflowOperationsTotal.WithLabelValues("finalize", "success"))
	RecordWorkflowOperation(ctx, "finalize", "success", time.Now().Add(-time.Second))
	if got := testutil.ToFloat64(WorkflowOperationsTotal.WithLabelValues("finalize", "success")); got != before+1 {
		t.Fatalf("workflow operations: expected %v, got %v", before+1, got)
	}
	if n := testutil.CollectAndCount(WorkflowOperationDuration); n == 0 {
		t.Fatal("expected a duration series")
	}
}

func TestEndSpanAcceptsError(t *testing.T) {
	_, span := StartSpan(context.Background(), "test")
	EndSpan(span, errors.New("boom"))
	if span.IsRecording() {
		t.Fatal("expected span to be ended")
	}
}
