// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"sync"
	"testing"
	"time"

	"github.com/mattermost/rtcstats/service/perf"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/interceptor/pkg/stats"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

type point struct {
	timestamp int64
	value     float64
}

type recordingPusher struct {
	points []point
	mut    sync.Mutex
}

func (p *recordingPusher) PushData(timestamp int64, value float64) {
	p.mut.Lock()
	defer p.mut.Unlock()
	p.points = append(p.points, point{timestamp, value})
}

func (p *recordingPusher) Points() []point {
	p.mut.Lock()
	defer p.mut.Unlock()
	return append([]point(nil), p.points...)
}

type testCharts struct {
	bitrate    *recordingPusher
	rtt        *recordingPusher
	jitter     *recordingPusher
	packetLoss *recordingPusher
}

func (c testCharts) charts() Charts {
	return Charts{
		Bitrate:    c.bitrate,
		RTT:        c.rtt,
		Jitter:     c.jitter,
		PacketLoss: c.packetLoss,
	}
}

func newTestCharts() testCharts {
	return testCharts{
		bitrate:    &recordingPusher{},
		rtt:        &recordingPusher{},
		jitter:     &recordingPusher{},
		packetLoss: &recordingPusher{},
	}
}

type fakeStatsGetter struct {
	reports []webrtc.StatsReport
	calls   int
	mut     sync.Mutex
}

// GetStats returns the configured reports in order, repeating the last one.
func (g *fakeStatsGetter) GetStats() webrtc.StatsReport {
	g.mut.Lock()
	defer g.mut.Unlock()
	if len(g.reports) == 0 {
		return nil
	}
	idx := g.calls
	if idx >= len(g.reports) {
		idx = len(g.reports) - 1
	}
	g.calls++
	return g.reports[idx]
}

type fakeRTPStatsGetter struct {
	stats map[uint32][]*stats.Stats
	calls map[uint32]int
	mut   sync.Mutex
}

func newFakeRTPStatsGetter(st map[uint32][]*stats.Stats) *fakeRTPStatsGetter {
	return &fakeRTPStatsGetter{
		stats: st,
		calls: make(map[uint32]int),
	}
}

// Get returns the configured stats for ssrc in order, repeating the last one.
func (g *fakeRTPStatsGetter) Get(ssrc uint32) *stats.Stats {
	g.mut.Lock()
	defer g.mut.Unlock()
	idx := g.calls[ssrc]
	g.calls[ssrc]++
	list := g.stats[ssrc]
	if len(list) == 0 {
		return nil
	}
	if idx >= len(list) {
		idx = len(list) - 1
	}
	return list[idx]
}

type fakeClock struct {
	now time.Time
	mut sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mut.Lock()
	defer c.mut.Unlock()
	c.now = t
}

func newTestLogger(t *testing.T) *mlog.Logger {
	t.Helper()
	log, err := mlog.NewLogger()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, log.Shutdown())
	})
	return log
}

func newTestConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

func setupController(t *testing.T, cfg Config, charts Charts, opts ...ControllerOption) *Controller {
	t.Helper()

	metrics := perf.NewMetrics("rtcstats", nil)
	require.NotNil(t, metrics)

	c, err := NewController(cfg, newTestLogger(t), metrics, charts, opts...)
	require.NoError(t, err)
	require.NotNil(t, c)

	return c
}

func inboundVideo(bytes uint64, jitter float64, lost int64) *stats.Stats {
	return &stats.Stats{
		InboundRTPStreamStats: stats.InboundRTPStreamStats{
			ReceivedRTPStreamStats: stats.ReceivedRTPStreamStats{
				Jitter:      jitter,
				PacketsLost: lost,
			},
			BytesReceived: bytes,
		},
	}
}

func candidatePair(rtt float64) webrtc.StatsReport {
	return webrtc.StatsReport{
		"pair": webrtc.ICECandidatePairStats{
			Type:                 webrtc.StatsTypeCandidatePair,
			ID:                   "pair",
			CurrentRoundTripTime: rtt,
		},
	}
}

func videoTrack(ssrc webrtc.SSRC) inboundTrack {
	return inboundTrack{
		ssrc:      ssrc,
		kind:      webrtc.RTPCodecTypeVideo,
		clockRate: 90000,
	}
}

// setStatsGetters installs the given getters as if a session was started with
// the given inbound tracks.
func setStatsGetters(c *Controller, report statsGetter, rtp stats.Getter, tracks ...inboundTrack) {
	c.mut.Lock()
	defer c.mut.Unlock()
	c.remoteStats = report
	c.rtpStats = rtp
	c.inbound = tracks
}
