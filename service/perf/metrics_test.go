// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package perf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics("rtcstats", prometheus.NewRegistry())
	require.NotNil(t, m)

	t.Run("counters", func(t *testing.T) {
		m.IncStatsPolls()
		m.IncStatsPolls()
		require.Equal(t, float64(2), testutil.ToFloat64(m.StatsPollCounters))

		m.IncStatsReports("inbound-rtp")
		require.Equal(t, float64(1), testutil.ToFloat64(m.StatsReportCounters.WithLabelValues("inbound-rtp")))

		m.IncRTCPPackets("pli")
		require.Equal(t, float64(1), testutil.ToFloat64(m.RTCPPacketCounters.WithLabelValues("pli")))

		m.IncChartPoints("rtt")
		require.Equal(t, float64(1), testutil.ToFloat64(m.ChartPointCounters.WithLabelValues("rtt")))
	})

	t.Run("session state", func(t *testing.T) {
		m.SetSessionState("idle")
		require.Equal(t, float64(1), testutil.ToFloat64(m.RTCSessionState.WithLabelValues("idle")))
		require.Equal(t, float64(0), testutil.ToFloat64(m.RTCSessionState.WithLabelValues("connected")))

		m.SetSessionState("connected")
		require.Equal(t, float64(0), testutil.ToFloat64(m.RTCSessionState.WithLabelValues("idle")))
		require.Equal(t, float64(1), testutil.ToFloat64(m.RTCSessionState.WithLabelValues("connected")))
	})

	t.Run("ws connections", func(t *testing.T) {
		m.IncWSConnections()
		m.IncWSConnections()
		m.DecWSConnections()
		require.Equal(t, float64(1), testutil.ToFloat64(m.WSConnections))
	})

	t.Run("handler", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "rtcstats_stats_polls_total 2")
	})
}
