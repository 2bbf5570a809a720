package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOnboardingMetricsRecord(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewOnboardingMetrics(OnboardingMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create onboarding metrics: %v", err)
	}

	metrics.RecordRedirectDecision(true)
	metrics.RecordRedirectDecision(false)
	metrics.RecordRedirectDecision(false)
	metrics.RecordStorageFault("write")
	metrics.RecordExpired()

	if got := testutil.ToFloat64(metrics.RedirectDecisions.WithLabelValues("true")); got != 1 {
		t.Fatalf("expected one positive decision, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.RedirectDecisions.WithLabelValues("false")); got != 2 {
		t.Fatalf("expected two negative decisions, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.StorageFaults.WithLabelValues("write")); got != 1 {
		t.Fatalf("expected one write fault, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.ExpiredRecords); got != 1 {
		t.Fatalf("expected one expired record, got %f", got)
	}
}

func TestOnboardingMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewOnboardingMetrics(OnboardingMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := NewOnboardingMetrics(OnboardingMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}

	second.RecordExpired()
	if got := testutil.ToFloat64(first.ExpiredRecords); got != 1 {
		t.Fatalf("expected collectors to be shared, got %f", got)
	}
}

func TestOnboardingMetricsNilIsNoop(t *testing.T) {
	var metrics *OnboardingMetrics
	metrics.RecordRedirectDecision(true)
	metrics.RecordStorageFault("read")
	metrics.RecordExpired()
}
