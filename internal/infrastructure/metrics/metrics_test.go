package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncIssued("2025")
		m.IncVoided()
		m.IncIssueFailure("render_failure")
		m.ObserveRender(time.Second)
		m.RenderStarted()
		m.RenderFinished()
		m.IncDonorResolution("reused")
		m.IncDonation("public")
		m.IncAuditDropped()
	})
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncIssued("2025")
	m.IncIssued("2025")
	m.IncIssued("2024")
	m.IncDonorResolution("forked")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CertificatesIssued.WithLabelValues("2025")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CertificatesIssued.WithLabelValues("2024")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DonorResolutions.WithLabelValues("forked")))
}
