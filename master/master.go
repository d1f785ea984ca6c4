// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package master implements the coordinator process: it installs the
// work plan, sweeps stale workers back into the pending queue, and
// exports progress metrics.  The HTTP API itself lives in restserver;
// this package is everything that runs around it.
package master

import (
	"context"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/aqea/go-extractor/coordinate"
)

// Master owns the coordination side of an extraction deployment.
type Master struct {
	store coordinate.Store
	plans []coordinate.LanguagePlan
	clk   clock.Clock
	log   *logrus.Entry

	registry *prometheus.Registry
	units    *prometheus.GaugeVec
	recycled prometheus.Counter
}

// New creates a master over a store and a set of language plans.
func New(store coordinate.Store, plans []coordinate.LanguagePlan) *Master {
	return NewWithClock(store, plans, clock.New())
}

// NewWithClock creates a master with an injected clock, for tests.
func NewWithClock(store coordinate.Store, plans []coordinate.LanguagePlan, clk clock.Clock) *Master {
	m := &Master{
		store:    store,
		plans:    plans,
		clk:      clk,
		log:      logrus.WithField("component", "master"),
		registry: prometheus.NewRegistry(),
		units: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aqea",
			Subsystem: "master",
			Name:      "work_units",
			Help:      "Work units by language, source, and status.",
		}, []string{"language", "source", "status"}),
		recycled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aqea",
			Subsystem: "master",
			Name:      "recycled_units_total",
			Help:      "Work units taken back from stale workers.",
		}),
	}
	m.registry.MustRegister(m.units, m.recycled)
	return m
}

// Install expands every plan into work units and writes them to the
// store.  Existing units keep their state, so restarting a master is
// harmless.
func (m *Master) Install() error {
	for i := range m.plans {
		units, err := m.plans[i].BuildWorkUnits()
		if err != nil {
			return err
		}
		if err := m.store.CreateWorkUnits(units); err != nil {
			return err
		}
		m.log.WithFields(logrus.Fields{
			"language": m.plans[i].Language,
			"source":   m.plans[i].Source,
			"units":    len(units),
		}).Info("installed work plan")
	}
	return m.updateMetrics()
}

// Run sweeps stale workers and refreshes metrics every
// coordinate.SweepInterval until the context is canceled, then logs a
// final status snapshot.
func (m *Master) Run(ctx context.Context) error {
	ticker := m.clk.Ticker(coordinate.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logSnapshot()
			return nil
		case <-ticker.C:
			m.sweep()
			if err := m.updateMetrics(); err != nil {
				m.log.WithError(err).Warn("could not refresh metrics")
			}
		}
	}
}

// sweep recycles units owned by workers that stopped heartbeating.
func (m *Master) sweep() {
	recycled, err := m.store.SweepStaleWorkers(coordinate.HeartbeatTimeout)
	if err != nil {
		m.log.WithError(err).Warn("stale worker sweep failed")
		return
	}
	if len(recycled) > 0 {
		m.recycled.Add(float64(len(recycled)))
		m.log.WithFields(logrus.Fields{
			"units": recycled,
		}).Warn("recycled units from stale workers")
	}
}

// updateMetrics republishes work-unit counts from the store.
func (m *Master) updateMetrics() error {
	records, err := m.store.Summarize()
	if err != nil {
		return err
	}
	m.units.Reset()
	for _, rec := range records {
		m.units.WithLabelValues(rec.Language, rec.Source, rec.Status.String()).
			Set(float64(rec.Count))
	}
	return nil
}

// logSnapshot writes a final per-language status summary, typically
// on shutdown.
func (m *Master) logSnapshot() {
	records, err := m.store.Summarize()
	if err != nil {
		m.log.WithError(err).Warn("could not summarize on shutdown")
		return
	}
	for _, rec := range records {
		m.log.WithFields(logrus.Fields{
			"language": rec.Language,
			"source":   rec.Source,
			"status":   rec.Status.String(),
			"units":    rec.Count,
		}).Info("final status")
	}
}

// MetricsHandler serves this master's prometheus registry.
func (m *Master) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
