package orch

import (
	"errors"

	"github.com/dkeye/VideoChat/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "slot_transitions",
		Namespace: "videochat",
		Help:      "number of slot state transitions",
	}, []string{"state"})
	slotFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "slot_failures",
		Namespace: "videochat",
		Help:      "number of slots closed by a transport failure",
	}, []string{"kind"})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "events_dropped",
		Namespace: "videochat",
		Help:      "transport events that resolved to no owned slot",
	}, []string{"event"})
	slotsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "slots_active",
		Namespace: "videochat",
		Help:      "owned slots not yet closed",
	})
)

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrConnectFailure):
		return "connect"
	case errors.Is(err, domain.ErrPublishFailure):
		return "publish"
	case errors.Is(err, domain.ErrSubscribeFailure):
		return "subscribe"
	}
	return "other"
}
