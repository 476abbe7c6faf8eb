// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the Reconciler's Prometheus collectors. They are registered on
// the Registerer passed with [WithRegisterer]; without one they are created
// unregistered, so that several Reconcilers can coexist in one process.
type metrics struct {
	events     *prometheus.CounterVec
	orphaned   *prometheus.CounterVec
	resolved   *prometheus.CounterVec
	pending    *prometheus.GaugeVec
	requests   *prometheus.CounterVec
	dropped    prometheus.Counter
	violations prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	f := promauto.With(reg)
	return &metrics{
		// events counts dispatched events by wire name
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events applied to the mirror by kind",
		}, []string{"op"}),

		orphaned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_queued_total",
			Help:      "Items queued in an orphan ledger",
		}, []string{"ledger"}),

		resolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_resolved_total",
			Help:      "Items released from an orphan ledger",
		}, []string{"ledger"}),

		pending: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans_pending",
			Help:      "Items currently waiting in an orphan ledger",
		}, []string{"ledger"}),

		// requests counts repair requests by target ("object" or "plugin")
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_requests_total",
			Help:      "Repair requests issued to the remote engine",
		}, []string{"target"}),

		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_dropped_total",
			Help:      "Connections dropped because no owning container was found",
		}),

		violations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Internal invariant violations reported and skipped",
		}),
	}
}
