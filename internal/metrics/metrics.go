// Package metrics exposes decoder statistics and fix state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"navic-ng/internal/gps"
)

// Source is read at scrape time.
type Source interface {
	Snapshot() gps.Snapshot
}

// Metrics owns a private registry so tests and multiple instances do not
// collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	published *prometheus.CounterVec
}

func New(src Source) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{reg: reg}

	stats := func(pick func(gps.Snapshot) uint64) func() float64 {
		return func() float64 { return float64(pick(src.Snapshot())) }
	}
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "navic_chars_processed_total",
		Help: "Bytes fed to the NMEA decoder",
	}, stats(func(s gps.Snapshot) uint64 { return s.Stats.CharsProcessed }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "navic_checksum_passed_total",
		Help: "Sentences whose checksum matched",
	}, stats(func(s gps.Snapshot) uint64 { return s.Stats.PassedChecksum }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "navic_checksum_failed_total",
		Help: "Sentences rejected on checksum",
	}, stats(func(s gps.Snapshot) uint64 { return s.Stats.FailedChecksum }))
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "navic_sentences_with_fix_total",
		Help: "Validated sentences that reported a fix",
	}, stats(func(s gps.Snapshot) uint64 { return s.Stats.SentencesWithFix }))

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "navic_fix_valid",
		Help: "1 when a position has been committed and is not stale",
	}, func() float64 {
		s := src.Snapshot()
		if s.Valid && !s.FixStale {
			return 1
		}
		return 0
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "navic_fix_age_seconds",
		Help: "Seconds since the last committed position",
	}, func() float64 { return src.Snapshot().FixAgeSec })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "navic_satellites",
		Help: "Satellites in use from the last GGA",
	}, func() float64 {
		if p := src.Snapshot().Satellites; p != nil {
			return float64(*p)
		}
		return 0
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "navic_hdop",
		Help: "Horizontal dilution of precision from the last GGA",
	}, func() float64 {
		if p := src.Snapshot().HDOP; p != nil {
			return *p
		}
		return 0
	})

	m.published = f.NewCounterVec(prometheus.CounterOpts{
		Name: "navic_fixes_published_total",
		Help: "Committed sentences fanned out to sinks, by sentence name",
	}, []string{"sentence"})
	return m
}

// PublishFix implements gps.Sink.
func (m *Metrics) PublishFix(snap gps.Snapshot) error {
	m.published.WithLabelValues(snap.Sentence).Inc()
	return nil
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
