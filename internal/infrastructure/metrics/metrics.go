package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so services can be built without it in tests.
type Metrics struct {
	CertificatesIssued *prometheus.CounterVec
	CertificatesVoided prometheus.Counter
	IssueFailures      *prometheus.CounterVec
	RenderDuration     prometheus.Histogram
	RenderInFlight     prometheus.Gauge
	DonorResolutions   *prometheus.CounterVec
	DonationsSubmitted *prometheus.CounterVec
	AuditEventsDropped prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CertificatesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hst_certificates_issued_total",
			Help: "Certificates issued, by certificate year",
		}, []string{"year"}),
		CertificatesVoided: f.NewCounter(prometheus.CounterOpts{
			Name: "hst_certificates_voided_total",
			Help: "Certificates voided",
		}),
		IssueFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hst_certificate_issue_failures_total",
			Help: "Failed issuance attempts, by error kind",
		}, []string{"kind"}),
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hst_certificate_render_seconds",
			Help:    "Time spent in the external renderer",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		RenderInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "hst_certificate_renders_in_flight",
			Help: "Render calls currently holding a renderer slot",
		}),
		DonorResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hst_donor_resolutions_total",
			Help: "Donor resolution outcomes",
		}, []string{"outcome"}),
		DonationsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hst_donations_submitted_total",
			Help: "Donations persisted, by intake path",
		}, []string{"path"}),
		AuditEventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "hst_audit_events_dropped_total",
			Help: "Audit events dropped because the queue was full",
		}),
	}
}

func (m *Metrics) IncIssued(year string) {
	if m == nil {
		return
	}
	m.CertificatesIssued.WithLabelValues(year).Inc()
}

func (m *Metrics) IncVoided() {
	if m == nil {
		return
	}
	m.CertificatesVoided.Inc()
}

func (m *Metrics) IncIssueFailure(kind string) {
	if m == nil {
		return
	}
	m.IssueFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.Observe(d.Seconds())
}

func (m *Metrics) RenderStarted() {
	if m == nil {
		return
	}
	m.RenderInFlight.Inc()
}

func (m *Metrics) RenderFinished() {
	if m == nil {
		return
	}
	m.RenderInFlight.Dec()
}

func (m *Metrics) IncDonorResolution(outcome string) {
	if m == nil {
		return
	}
	m.DonorResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDonation(path string) {
	if m == nil {
		return
	}
	m.DonationsSubmitted.WithLabelValues(path).Inc()
}

func (m *Metrics) IncAuditDropped() {
	if m == nil {
		return
	}
	m.AuditEventsDropped.Inc()
}
