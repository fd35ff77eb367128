// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package perf

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsSubSystemRTC   = "rtc"
	metricsSubSystemStats = "stats"
	metricsSubSystemChart = "chart"
	metricsSubSystemWS    = "ws"
)

var sessionStates = []string{"idle", "negotiating", "connected"}

type Metrics struct {
	registry *prometheus.Registry

	StatsPollCounters    prometheus.Counter
	StatsReportCounters  *prometheus.CounterVec
	RTCErrorCounters     *prometheus.CounterVec
	RTCPPacketCounters   *prometheus.CounterVec
	RTCConnStateCounters *prometheus.CounterVec
	RTCSessionState      *prometheus.GaugeVec

	ChartPointCounters *prometheus.CounterVec

	WSConnections     prometheus.Gauge
	WSMessageCounters *prometheus.CounterVec
}

func NewMetrics(namespace string, registry *prometheus.Registry) *Metrics {
	var m Metrics

	if registry != nil {
		m.registry = registry
	} else {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
			Namespace: namespace,
		}))
		m.registry.MustRegister(collectors.NewGoCollector())
	}

	m.StatsPollCounters = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemStats,
			Name:      "polls_total",
			Help:      "Total number of statistics polls on the remote endpoint",
		},
	)
	m.registry.MustRegister(m.StatsPollCounters)

	m.StatsReportCounters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemStats,
			Name:      "reports_total",
			Help:      "Total number of processed statistics reports",
		},
		[]string{"type"},
	)
	m.registry.MustRegister(m.StatsReportCounters)

	m.RTCErrorCounters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemRTC,
			Name:      "errors_total",
			Help:      "Total number of RTC errors",
		},
		[]string{"type"},
	)
	m.registry.MustRegister(m.RTCErrorCounters)

	m.RTCPPacketCounters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemRTC,
			Name:      "rtcp_packets_total",
			Help:      "Total number of RTCP packets received by the local endpoint",
		},
		[]string{"type"},
	)
	m.registry.MustRegister(m.RTCPPacketCounters)

	m.RTCConnStateCounters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemRTC,
			Name:      "conn_states_total",
			Help:      "Total number of RTC connection state changes",
		},
		[]string{"type"},
	)
	m.registry.MustRegister(m.RTCConnStateCounters)

	m.RTCSessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemRTC,
			Name:      "session_state",
			Help:      "Current state of the media session",
		},
		[]string{"state"},
	)
	m.registry.MustRegister(m.RTCSessionState)

	m.ChartPointCounters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemChart,
			Name:      "points_total",
			Help:      "Total number of points pushed to charts",
		},
		[]string{"chartID"},
	)
	m.registry.MustRegister(m.ChartPointCounters)

	m.WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemWS,
			Name:      "connections_total",
			Help:      "Total number of active WebSocket connections",
		},
	)
	m.registry.MustRegister(m.WSConnections)

	m.WSMessageCounters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubSystemWS,
			Name:      "messages_total",
			Help:      "Total number of sent/received WebSocket messages",
		},
		[]string{"type", "direction"},
	)
	m.registry.MustRegister(m.WSMessageCounters)

	return &m
}

func (m *Metrics) IncStatsPolls() {
	m.StatsPollCounters.Inc()
}

func (m *Metrics) IncStatsReports(reportType string) {
	m.StatsReportCounters.With(prometheus.Labels{"type": reportType}).Inc()
}

func (m *Metrics) IncRTCErrors(errType string) {
	m.RTCErrorCounters.With(prometheus.Labels{"type": errType}).Inc()
}

func (m *Metrics) IncRTCPPackets(pktType string) {
	m.RTCPPacketCounters.With(prometheus.Labels{"type": pktType}).Inc()
}

func (m *Metrics) IncRTCConnState(state string) {
	m.RTCConnStateCounters.With(prometheus.Labels{"type": state}).Inc()
}

// SetSessionState sets the gauge for the given state to one and all the
// others to zero.
func (m *Metrics) SetSessionState(state string) {
	for _, st := range sessionStates {
		var val float64
		if st == state {
			val = 1
		}
		m.RTCSessionState.With(prometheus.Labels{"state": st}).Set(val)
	}
}

func (m *Metrics) IncChartPoints(chartID string) {
	m.ChartPointCounters.With(prometheus.Labels{"chartID": chartID}).Inc()
}

func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

func (m *Metrics) IncWSMessages(msgType, direction string) {
	m.WSMessageCounters.With(prometheus.Labels{"type": msgType, "direction": direction}).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
