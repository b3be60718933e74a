// Package metrics records catalog build statistics as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bulliondeals"

// Recorder exposes the pipeline counters. A nil Recorder or one built with a
// nil registerer is valid and records nothing.
type Recorder struct {
	adapterDuration *prometheus.HistogramVec
	adapterSuccess  *prometheus.CounterVec
	adapterFailure  *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	defaults        *prometheus.CounterVec
	products        *prometheus.GaugeVec
}

// NewRecorder registers the pipeline metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}

	r := &Recorder{
		adapterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Duration of dealer adapter runs in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"dealer"}),
		adapterSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_success_total",
			Help:      "Dealer adapter runs that returned candidates.",
		}, []string{"dealer"}),
		adapterFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_failure_total",
			Help:      "Dealer adapter runs that failed outright or timed out.",
		}, []string{"dealer"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Candidates dropped before catalog insertion.",
		}, []string{"dealer", "reason"}),
		defaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_defaults_total",
			Help:      "Metal or type classifications resolved by the fallback default.",
		}, []string{"dealer", "kind"}),
		products: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Products in the latest catalog per dealer.",
		}, []string{"dealer"}),
	}

	reg.MustRegister(r.adapterDuration, r.adapterSuccess, r.adapterFailure, r.rejected, r.defaults, r.products)

	return r
}

// ObserveAdapter records one adapter run.
func (r *Recorder) ObserveAdapter(dealer string, duration time.Duration, failed bool) {
	if r == nil || r.adapterDuration == nil {
		return
	}

	dealer = normalizeLabel(dealer)
	r.adapterDuration.WithLabelValues(dealer).Observe(duration.Seconds())

	if failed {
		r.adapterFailure.WithLabelValues(dealer).Inc()

		return
	}

	r.adapterSuccess.WithLabelValues(dealer).Inc()
}

// ObserveReject counts a candidate dropped for reason.
func (r *Recorder) ObserveReject(dealer, reason string) {
	if r == nil || r.rejected == nil {
		return
	}

	r.rejected.WithLabelValues(normalizeLabel(dealer), normalizeLabel(reason)).Inc()
}

// ObserveDefault counts a classification that fell back to its default. kind is "metal" or "type".
func (r *Recorder) ObserveDefault(dealer, kind string) {
	if r == nil || r.defaults == nil {
		return
	}

	r.defaults.WithLabelValues(normalizeLabel(dealer), normalizeLabel(kind)).Inc()
}

// SetProducts records the product count of dealer in the latest catalog.
func (r *Recorder) SetProducts(dealer string, count int) {
	if r == nil || r.products == nil {
		return
	}

	r.products.WithLabelValues(normalizeLabel(dealer)).Set(float64(count))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}

	return v
}
