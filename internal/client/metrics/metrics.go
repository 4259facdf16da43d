// Package metrics holds the Prometheus instruments of the notes client.
//
// All metrics are prefixed with "notekeeper_":
//   - notekeeper_requests_total{method,code} - backend requests by outcome
//   - notekeeper_forced_logouts_total - sessions cleared after a 401
//   - notekeeper_upload_failures_total - saves whose attachment phase failed
//   - notekeeper_preview_handles_open - preview handles currently alive
//   - notekeeper_preview_handles_acquired_total
//   - notekeeper_preview_handles_released_total
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics groups every instrument used by the client.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	ForcedLogoutsTotal  prometheus.Counter
	UploadFailuresTotal prometheus.Counter

	PreviewHandlesOpen   prometheus.Gauge
	PreviewAcquiredTotal prometheus.Counter
	PreviewReleasedTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the instruments on reg. A nil reg gets a private registry,
// which keeps repeated construction in tests from colliding.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	g, _ := reg.(prometheus.Gatherer)

	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notekeeper_requests_total",
				Help: "Total number of backend requests by method and status code",
			},
			[]string{"method", "code"}, // code is "error" for transport failures
		),
		ForcedLogoutsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "notekeeper_forced_logouts_total",
			Help: "Total number of sessions cleared after an unauthorized response",
		}),
		UploadFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "notekeeper_upload_failures_total",
			Help: "Total number of saves whose attachment upload failed",
		}),
		PreviewHandlesOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "notekeeper_preview_handles_open",
			Help: "Current number of live preview handles",
		}),
		PreviewAcquiredTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "notekeeper_preview_handles_acquired_total",
			Help: "Total number of preview handles created",
		}),
		PreviewReleasedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "notekeeper_preview_handles_released_total",
			Help: "Total number of preview handles released",
		}),
		gatherer: g,
	}
}

// RecordRequest counts one request. status 0 means no response arrived.
func (m *Metrics) RecordRequest(method string, status int) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(method, code).Inc()
}

// RecordForcedLogout counts a session cleared by a 401.
func (m *Metrics) RecordForcedLogout() {
	if m == nil {
		return
	}
	m.ForcedLogoutsTotal.Inc()
}

// RecordUploadFailure counts a failed attachment phase.
func (m *Metrics) RecordUploadFailure() {
	if m == nil {
		return
	}
	m.UploadFailuresTotal.Inc()
}

// RecordPreviewAcquired counts a new preview handle.
func (m *Metrics) RecordPreviewAcquired() {
	if m == nil {
		return
	}
	m.PreviewAcquiredTotal.Inc()
	m.PreviewHandlesOpen.Inc()
}

// RecordPreviewReleased counts a released preview handle.
func (m *Metrics) RecordPreviewReleased() {
	if m == nil {
		return
	}
	m.PreviewReleasedTotal.Inc()
	m.PreviewHandlesOpen.Dec()
}

// Snapshot is a point-in-time reading of the client's instruments.
type Snapshot struct {
	// Requests counts backend requests by status code ("error" for
	// transport failures), summed over methods.
	Requests         map[string]float64
	ForcedLogouts    float64
	UploadFailures   float64
	PreviewsOpen     float64
	PreviewsAcquired float64
	PreviewsReleased float64
}

// Snapshot gathers the registry the instruments were registered on.
func (m *Metrics) Snapshot() (Snapshot, error) {
	if m == nil {
		return Snapshot{}, errors.New("metrics disabled")
	}
	if m.gatherer == nil {
		return Snapshot{}, errors.New("metrics registry cannot be gathered")
	}

	families, err := m.gatherer.Gather()
	if err != nil {
		return Snapshot{}, fmt.Errorf("gather metrics: %w", err)
	}

	s := Snapshot{Requests: map[string]float64{}}
	for _, mf := range families {
		switch mf.GetName() {
		case "notekeeper_requests_total":
			for _, metric := range mf.GetMetric() {
				s.Requests[label(metric, "code")] += metric.GetCounter().GetValue()
			}
		case "notekeeper_forced_logouts_total":
			s.ForcedLogouts = sum(mf)
		case "notekeeper_upload_failures_total":
			s.UploadFailures = sum(mf)
		case "notekeeper_preview_handles_open":
			s.PreviewsOpen = sum(mf)
		case "notekeeper_preview_handles_acquired_total":
			s.PreviewsAcquired = sum(mf)
		case "notekeeper_preview_handles_released_total":
			s.PreviewsReleased = sum(mf)
		}
	}
	return s, nil
}

func sum(mf *dto.MetricFamily) float64 {
	var v float64
	for _, metric := range mf.GetMetric() {
		if c := metric.GetCounter(); c != nil {
			v += c.GetValue()
		}
		if g := metric.GetGauge(); g != nil {
			v += g.GetValue()
		}
	}
	return v
}

func label(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
