package apiclient

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts and times every call made to the staff API.
type Metrics struct {
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors on reg. Collectors already
// registered by an earlier client are shared.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staff_api_in_flight_requests",
			Help: "In-flight requests to the staff API.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staff_api_requests_total",
			Help: "Requests sent to the staff API.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staff_api_request_duration_seconds",
			Help:    "Staff API request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}

	var err error
	if m.inFlight, err = register(reg, m.inFlight); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}

	return m, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *Metrics) instrument(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(m.inFlight,
		promhttp.InstrumentRoundTripperCounter(m.requests,
			promhttp.InstrumentRoundTripperDuration(m.duration, next),
		),
	)
}
