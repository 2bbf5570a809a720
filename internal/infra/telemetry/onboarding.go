package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// OnboardingMetricsOptions configures the onboarding collectors.
type OnboardingMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// OnboardingMetrics counts navigator outcomes. It satisfies usecase.NavigationRecorder.
type OnboardingMetrics struct {
	RedirectDecisions *prometheus.CounterVec
	StorageFaults     *prometheus.CounterVec
	ExpiredRecords    prometheus.Counter
}

// NewOnboardingMetrics constructs and registers the onboarding collectors.
func NewOnboardingMetrics(opts OnboardingMetricsOptions) (*OnboardingMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "homescout"
	}

	redirects, err := Register(opts.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "redirect_decisions_total",
		Help:      "Preferences redirect decisions partitioned by outcome.",
	}, []string{"redirect"}))
	if err != nil {
		return nil, err
	}

	faults, err := Register(opts.Registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "storage_faults_total",
		Help:      "Navigation state storage faults partitioned by operation.",
	}, []string{"op"}))
	if err != nil {
		return nil, err
	}

	expired, err := Register(opts.Registerer, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onboarding",
		Name:      "expired_records_total",
		Help:      "Navigation records discarded after their time to live.",
	}))
	if err != nil {
		return nil, err
	}

	return &OnboardingMetrics{
		RedirectDecisions: redirects,
		StorageFaults:     faults,
		ExpiredRecords:    expired,
	}, nil
}

func (m *OnboardingMetrics) RecordRedirectDecision(redirect bool) {
	if m == nil {
		return
	}
	m.RedirectDecisions.WithLabelValues(strconv.FormatBool(redirect)).Inc()
}

func (m *OnboardingMetrics) RecordStorageFault(op string) {
	if m == nil {
		return
	}
	m.StorageFaults.WithLabelValues(op).Inc()
}

func (m *OnboardingMetrics) RecordExpired() {
	if m == nil {
		return
	}
	m.ExpiredRecords.Inc()
}
