package metrics

import "github.com/prometheus/client_golang/prometheus"

// DashboardMetrics exposes counters/histograms for upstream calls, cache
// lookups, and booking outcomes.
type DashboardMetrics struct {
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total requests issued to external collaborators",
		}, []string{"service", "operation", "status"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "upstream",
			Name:      "request_latency_seconds",
			Help:      "Latency of requests to external collaborators",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by entry kind and result",
		}, []string{"entry", "result"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "bookings",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.upstreamTotal, m.upstreamLatency, m.cacheLookups, m.bookingsTotal)
	return m
}

func (m *DashboardMetrics) ObserveUpstream(service, operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(service, operation, status).Inc()
	m.upstreamLatency.WithLabelValues(service, operation).Observe(seconds)
}

func (m *DashboardMetrics) ObserveCache(entry, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(entry, result).Inc()
}

func (m *DashboardMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}
