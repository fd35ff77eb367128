// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"time"

	"github.com/pion/interceptor/pkg/stats"
	"github.com/pion/webrtc/v4"
)

const videoBytesReceivedKey = "videoBytesReceived"

type statsValue struct {
	timestamp time.Time
	value     float64
}

// computeBitrate returns the rate in bits per millisecond between two
// cumulative byte counts.
func computeBitrate(prev, cur statsValue) (float64, bool) {
	elapsed := cur.timestamp.Sub(prev.timestamp).Milliseconds()
	if elapsed <= 0 {
		return 0, false
	}
	return (cur.value - prev.value) * 8 / float64(elapsed), true
}

// CollectStats queries the remote endpoint and pushes bitrate, jitter and
// packet loss for inbound video plus the round-trip time of candidate pairs.
// It does nothing if no session has been started.
func (c *Controller) CollectStats() {
	c.mut.RLock()
	reportGetter, rtpGetter := c.remoteStats, c.rtpStats
	tracks := make([]inboundTrack, len(c.inbound))
	copy(tracks, c.inbound)
	c.mut.RUnlock()

	if reportGetter == nil {
		return
	}

	now := c.now()
	c.metrics.IncStatsPolls()

	// Inbound RTP stream stats are only recorded by the stats interceptor.
	if rtpGetter != nil {
		for _, track := range tracks {
			if track.kind != webrtc.RTPCodecTypeVideo {
				continue
			}
			s := rtpGetter.Get(uint32(track.ssrc))
			if s == nil {
				continue
			}
			c.metrics.IncStatsReports(string(webrtc.StatsTypeInboundRTP))
			c.processInboundVideo(now, track, s.InboundRTPStreamStats)
		}
	}

	for _, s := range reportGetter.GetStats() {
		st, ok := s.(webrtc.ICECandidatePairStats)
		if !ok || st.Type != webrtc.StatsTypeCandidatePair {
			continue
		}
		c.metrics.IncStatsReports(string(st.Type))
		// Every pair is plotted, nominated or not.
		c.charts.RTT.PushData(c.now().UnixMilli(), st.CurrentRoundTripTime)
	}
}

func (c *Controller) processInboundVideo(now time.Time, track inboundTrack, st stats.InboundRTPStreamStats) {
	cur := statsValue{
		timestamp: now,
		value:     float64(st.BytesReceived),
	}

	if prev, ok := c.prevStats[videoBytesReceivedKey]; ok {
		if bitrate, ok := computeBitrate(prev, cur); ok {
			c.charts.Bitrate.PushData(c.now().UnixMilli(), bitrate)
		}
	}
	c.prevStats[videoBytesReceivedKey] = cur

	c.charts.Jitter.PushData(c.now().UnixMilli(), jitterSeconds(st.Jitter, track.clockRate))
	c.charts.PacketLoss.PushData(c.now().UnixMilli(), float64(st.PacketsLost))
}

// jitterSeconds converts the interarrival jitter from RTP timestamp units to
// seconds.
func jitterSeconds(jitter float64, clockRate uint32) float64 {
	if clockRate == 0 {
		return jitter
	}
	return jitter / float64(clockRate)
}
