package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_triggers_total",
		Help: "Inbound triggers accepted by the router.",
	}, []string{"kind"})

	coalescedTriggersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_triggers_coalesced_total",
		Help: "Triggers collapsed into an already-pending re-evaluation.",
	})

	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_evaluations_total",
		Help: "Rule evaluations by compliance verdict.",
	}, []string{"compliance"})

	remediationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_remediations_total",
		Help: "Remediation dispatches by terminal status.",
	}, []string{"status"})
)
