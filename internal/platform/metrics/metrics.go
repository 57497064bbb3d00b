package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the certificate core. Services
// accept a nil *Metrics; every method is nil-safe so unit tests can skip
// registry setup.
type Metrics struct {
	CertificatesIssued prometheus.Counter
	IssueFailures      *prometheus.CounterVec
	AccessTokensIssued prometheus.Counter
	QrEncodings        prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcert_certificates_issued_total",
			Help: "Total number of certificates issued successfully",
		}),
		IssueFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "petcert_certificate_issue_failures_total",
			Help: "Certificate issuance failures by error code",
		}, []string{"code"}),
		AccessTokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcert_access_tokens_issued_total",
			Help: "Total number of temporary record-access tokens issued",
		}),
		QrEncodings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "petcert_qr_encodings_total",
			Help: "Total number of QR bundle encodings performed",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "petcert_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) IncCertificatesIssued() {
	if m != nil {
		m.CertificatesIssued.Inc()
	}
}

func (m *Metrics) IncIssueFailure(code string) {
	if m != nil {
		m.IssueFailures.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncAccessTokensIssued() {
	if m != nil {
		m.AccessTokensIssued.Inc()
	}
}

func (m *Metrics) IncQrEncodings() {
	if m != nil {
		m.QrEncodings.Inc()
	}
}

func (m *Metrics) ObserveRequest(route, method string, seconds float64) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
	}
}
