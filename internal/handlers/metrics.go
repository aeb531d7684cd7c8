package handlers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Obel-arg/catch-influencer-sub003/internal/metricsfetch"
)

type PlannerMetrics struct {
	Requests        *prometheus.CounterVec
	CacheEvents     *prometheus.CounterVec
	ScheduleLoads   *prometheus.CounterVec
	SessionsCreated prometheus.Counter
}

func (m *PlannerMetrics) IncRequest(handler, status string) {
	if m == nil || m.Requests == nil {
		return
	}

	m.Requests.WithLabelValues(handler, status).Inc()
}

func (m *PlannerMetrics) IncCacheEvent(event string) {
	if m == nil || m.CacheEvents == nil {
		return
	}

	m.CacheEvents.WithLabelValues(event).Inc()
}

func (m *PlannerMetrics) IncScheduleLoad(status string) {
	if m == nil || m.ScheduleLoads == nil {
		return
	}

	m.ScheduleLoads.WithLabelValues(status).Inc()
}

func (m *PlannerMetrics) IncSessionCreated() {
	if m == nil || m.SessionsCreated == nil {
		return
	}

	m.SessionsCreated.Inc()
}

// CoordinatorHooks counts metrics cache events by kind. Content ids are left
// out of the labels.
func (m *PlannerMetrics) CoordinatorHooks() metricsfetch.MetricsHooks {
	count := func(event string) func(map[string]string) {
		return func(map[string]string) { m.IncCacheEvent(event) }
	}
	return metricsfetch.MetricsHooks{
		OnHit:   count("hit"),
		OnMiss:  count("miss"),
		OnJoin:  count("join"),
		OnStore: count("store"),
		OnError: count("error"),
	}
}
