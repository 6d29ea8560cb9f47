package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/isethius/Autowebsites-sub001/ext"
	"github.com/isethius/Autowebsites-sub001/id"
	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/quota"
	"github.com/isethius/Autowebsites-sub001/run"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*MetricsExtension)(nil)
	_ ext.RunStarted       = (*MetricsExtension)(nil)
	_ ext.RunCompleted     = (*MetricsExtension)(nil)
	_ ext.RunFailed        = (*MetricsExtension)(nil)
	_ ext.RunCancelled     = (*MetricsExtension)(nil)
	_ ext.RunSkipped       = (*MetricsExtension)(nil)
	_ ext.LeadDiscovered   = (*MetricsExtension)(nil)
	_ ext.LeadQualified    = (*MetricsExtension)(nil)
	_ ext.LeadSkipped      = (*MetricsExtension)(nil)
	_ ext.PreviewGenerated = (*MetricsExtension)(nil)
	_ ext.PreviewDeployed  = (*MetricsExtension)(nil)
	_ ext.EmailSent        = (*MetricsExtension)(nil)
	_ ext.EmailFailed      = (*MetricsExtension)(nil)
	_ ext.QuotaWarning     = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via Prometheus.
// Register it as an extension to automatically track run admissions and
// outcomes, lead milestones, preview builds, email outcomes, and quota
// warnings. Expose the metrics with promhttp on the registerer the
// extension was built against.
type MetricsExtension struct {
	RunsStarted       prometheus.Counter
	RunsCompleted     prometheus.Counter
	RunsFailed        prometheus.Counter
	RunsCancelled     prometheus.Counter
	RunsSkipped       *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LeadsDiscovered   prometheus.Counter
	LeadsQualified    prometheus.Counter
	LeadsSkipped      *prometheus.CounterVec
	PreviewsGenerated prometheus.Counter
	PreviewsDeployed  prometheus.Counter
	EmailsSent        prometheus.Counter
	EmailsFailed      prometheus.Counter
	QuotaWarnings     prometheus.Counter
}

// NewMetricsExtension creates a MetricsExtension on the default
// Prometheus registerer.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsExtensionWithRegisterer creates a MetricsExtension on the
// provided registerer. Use prometheus.NewRegistry() for testing.
func NewMetricsExtensionWithRegisterer(reg prometheus.Registerer) *MetricsExtension {
	factory := promauto.With(reg)
	return &MetricsExtension{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_runs_started_total",
			Help: "Total cycles admitted past every gate",
		}),
		RunsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_runs_completed_total",
			Help: "Total cycles that finished all phases",
		}),
		RunsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_runs_failed_total",
			Help: "Total cycles that failed with a non-isolated error",
		}),
		RunsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_runs_cancelled_total",
			Help: "Total cycles stopped by cooperative cancellation",
		}),
		RunsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autowebsites_runs_skipped_total",
			Help: "Total trigger fires refused by an admission gate",
		}, []string{"reason"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "autowebsites_run_duration_seconds",
			Help:    "Wall-clock duration of completed cycles",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		LeadsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_leads_discovered_total",
			Help: "Total candidate leads produced by discovery",
		}),
		LeadsQualified: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_leads_qualified_total",
			Help: "Total leads that passed qualification",
		}),
		LeadsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autowebsites_leads_skipped_total",
			Help: "Total leads filtered out or capped",
		}, []string{"reason"}),
		PreviewsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_previews_generated_total",
			Help: "Total preview sites generated",
		}),
		PreviewsDeployed: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_previews_deployed_total",
			Help: "Total preview sites deployed",
		}),
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_emails_sent_total",
			Help: "Total outreach emails accepted by the provider",
		}),
		EmailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_emails_failed_total",
			Help: "Total outreach emails that failed to send",
		}),
		QuotaWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "autowebsites_quota_warnings_total",
			Help: "Total low-quota warnings emitted",
		}),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Run lifecycle hooks ─────────────────────────────

// OnRunStarted implements ext.RunStarted.
func (m *MetricsExtension) OnRunStarted(_ context.Context, _ *run.Run) error {
	m.RunsStarted.Inc()
	return nil
}

// OnRunCompleted implements ext.RunCompleted.
func (m *MetricsExtension) OnRunCompleted(_ context.Context, _ *run.Run, elapsed time.Duration) error {
	m.RunsCompleted.Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	return nil
}

// OnRunFailed implements ext.RunFailed.
func (m *MetricsExtension) OnRunFailed(_ context.Context, _ *run.Run, _ error) error {
	m.RunsFailed.Inc()
	return nil
}

// OnRunCancelled implements ext.RunCancelled.
func (m *MetricsExtension) OnRunCancelled(_ context.Context, _ *run.Run) error {
	m.RunsCancelled.Inc()
	return nil
}

// OnRunSkipped implements ext.RunSkipped.
func (m *MetricsExtension) OnRunSkipped(_ context.Context, reason string) error {
	m.RunsSkipped.WithLabelValues(reason).Inc()
	return nil
}

// ── Lead milestone hooks ────────────────────────────

// OnLeadDiscovered implements ext.LeadDiscovered.
func (m *MetricsExtension) OnLeadDiscovered(_ context.Context, _ id.RunID, _ *lead.Lead) error {
	m.LeadsDiscovered.Inc()
	return nil
}

// OnLeadQualified implements ext.LeadQualified.
func (m *MetricsExtension) OnLeadQualified(_ context.Context, _ id.RunID, _ *lead.Lead) error {
	m.LeadsQualified.Inc()
	return nil
}

// OnLeadSkipped implements ext.LeadSkipped.
func (m *MetricsExtension) OnLeadSkipped(_ context.Context, _ id.RunID, _ *lead.Lead, reason string) error {
	m.LeadsSkipped.WithLabelValues(reason).Inc()
	return nil
}

// OnPreviewGenerated implements ext.PreviewGenerated.
func (m *MetricsExtension) OnPreviewGenerated(_ context.Context, _ id.RunID, _ *lead.Lead) error {
	m.PreviewsGenerated.Inc()
	return nil
}

// OnPreviewDeployed implements ext.PreviewDeployed.
func (m *MetricsExtension) OnPreviewDeployed(_ context.Context, _ id.RunID, _ *lead.Lead, _ string) error {
	m.PreviewsDeployed.Inc()
	return nil
}

// ── Email hooks ─────────────────────────────────────

// OnEmailSent implements ext.EmailSent.
func (m *MetricsExtension) OnEmailSent(_ context.Context, _ id.RunID, _ *lead.Lead, _ string) error {
	m.EmailsSent.Inc()
	return nil
}

// OnEmailFailed implements ext.EmailFailed.
func (m *MetricsExtension) OnEmailFailed(_ context.Context, _ id.RunID, _ *lead.Lead, _ error) error {
	m.EmailsFailed.Inc()
	return nil
}

// ── Quota hooks ─────────────────────────────────────

// OnQuotaWarning implements ext.QuotaWarning.
func (m *MetricsExtension) OnQuotaWarning(_ context.Context, _ *quota.Snapshot) error {
	m.QuotaWarnings.Inc()
	return nil
}
