// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/interceptor/pkg/stats"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

var (
	ErrNoLocalMedia   = errors.New("local media has not been acquired")
	ErrSessionStarted = errors.New("session already started")
	ErrNotStarted     = errors.New("controller is not started")
	ErrStarted        = errors.New("controller is already started")
	ErrStopped        = errors.New("controller has been stopped")
)

// DataPusher is implemented by anything that can plot a sample, usually a
// chart.
type DataPusher interface {
	PushData(timestamp int64, value float64)
}

// Charts holds the destinations for each collected metric.
type Charts struct {
	Bitrate    DataPusher
	RTT        DataPusher
	Jitter     DataPusher
	PacketLoss DataPusher
}

func (c Charts) IsValid() error {
	if c.Bitrate == nil {
		return fmt.Errorf("invalid Bitrate value: should not be nil")
	}
	if c.RTT == nil {
		return fmt.Errorf("invalid RTT value: should not be nil")
	}
	if c.Jitter == nil {
		return fmt.Errorf("invalid Jitter value: should not be nil")
	}
	if c.PacketLoss == nil {
		return fmt.Errorf("invalid PacketLoss value: should not be nil")
	}
	return nil
}

type statsGetter interface {
	GetStats() webrtc.StatsReport
}

// inboundTrack identifies a stream received by the remote endpoint in the
// stats interceptor.
type inboundTrack struct {
	ssrc      webrtc.SSRC
	kind      webrtc.RTPCodecType
	clockRate uint32
}

// Controller owns the local media, the two directly wired endpoints and the
// statistics polling loop.
type Controller struct {
	cfg     Config
	log     mlog.LoggerIFace
	metrics Metrics
	charts  Charts
	now     func() time.Time

	localPreview  *Surface
	remotePreview *Surface
	stateCb       func(SessionState)

	localStream *LocalStream
	local       *endpoint
	remote      *endpoint
	remoteStats statsGetter
	rtpStats    stats.Getter
	inbound     []inboundTrack
	state       SessionState
	negotiated  atomic.Bool

	// Only accessed by the goroutine collecting stats.
	prevStats map[string]statsValue

	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mut sync.RWMutex
}

type ControllerOption func(c *Controller) error

// WithClock lets the caller override the clock used to timestamp samples.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) error {
		if now == nil {
			return fmt.Errorf("clock should not be nil")
		}
		c.now = now
		return nil
	}
}

// WithStateCb sets a callback fired on every session state transition.
func WithStateCb(cb func(SessionState)) ControllerOption {
	return func(c *Controller) error {
		c.stateCb = cb
		return nil
	}
}

func NewController(cfg Config, log mlog.LoggerIFace, metrics Metrics, charts Charts, opts ...ControllerOption) (*Controller, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("log should not be nil")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics should not be nil")
	}
	if err := charts.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid charts: %w", err)
	}

	c := &Controller{
		cfg:           cfg,
		log:           log,
		metrics:       metrics,
		charts:        charts,
		now:           time.Now,
		localPreview:  NewSurface(SurfaceLocal, log),
		remotePreview: NewSurface(SurfaceRemote, log),
		prevStats:     make(map[string]statsValue),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	metrics.SetSessionState(StateIdle.String())

	return c, nil
}

func (c *Controller) LocalPreview() *Surface {
	return c.localPreview
}

func (c *Controller) RemotePreview() *Surface {
	return c.remotePreview
}

func (c *Controller) State() SessionState {
	c.mut.RLock()
	defer c.mut.RUnlock()
	return c.state
}

// Start starts polling statistics and acquires the local media. The polling
// loop keeps running even if acquiring media fails, in which case the error
// is returned. A controller cannot be started again once stopped.
func (c *Controller) Start(ctx context.Context) error {
	c.mut.Lock()
	if c.started {
		c.mut.Unlock()
		return ErrStarted
	}
	if c.stopped {
		c.mut.Unlock()
		return ErrStopped
	}
	c.started = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.mut.Unlock()

	c.log.Debug("starting stats collector", mlog.Int("intervalMs", c.cfg.StatsPollIntervalMs))
	go c.collector(c.stopCh, c.doneCh)

	if err := c.AcquireLocalMedia(ctx); err != nil {
		return fmt.Errorf("failed to acquire local media: %w", err)
	}

	return nil
}

func (c *Controller) collector(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(c.cfg.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CollectStats()
		case <-stopCh:
			return
		}
	}
}

// AcquireLocalMedia requests a video only stream and shows it on the local
// preview.
func (c *Controller) AcquireLocalMedia(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stream, err := getUserMedia(c.cfg.Media, MediaConstraints{Video: true, Audio: false}, c.log)
	if err != nil {
		return err
	}

	c.mut.Lock()
	prev := c.localStream
	c.localStream = stream
	c.mut.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			c.log.Warn("failed to close previous local stream", mlog.Err(err))
		}
	}

	c.localPreview.BindStream(stream)
	c.log.Info("local media acquired", mlog.String("streamID", stream.ID()))

	return nil
}

// StartSession creates the two endpoints and wires them together. The offer
// and answer exchange happens asynchronously once the local endpoint asks
// for negotiation.
func (c *Controller) StartSession() error {
	c.mut.Lock()

	if c.localStream == nil {
		c.mut.Unlock()
		return ErrNoLocalMedia
	}
	if c.state != StateIdle {
		c.mut.Unlock()
		return ErrSessionStarted
	}

	localPC, _, err := newPeerConnection(c.cfg, c.log)
	if err != nil {
		c.mut.Unlock()
		return fmt.Errorf("failed to create local endpoint: %w", err)
	}
	remotePC, rtpStats, err := newPeerConnection(c.cfg, c.log)
	if err != nil {
		c.mut.Unlock()
		if closeErr := localPC.Close(); closeErr != nil {
			c.log.Error("failed to close local endpoint", mlog.Err(closeErr))
		}
		return fmt.Errorf("failed to create remote endpoint: %w", err)
	}

	local := newEndpoint(SurfaceLocal, localPC)
	remote := newEndpoint(SurfaceRemote, remotePC)
	c.wire(local, remote)

	for _, track := range c.localStream.Tracks() {
		sender, err := localPC.AddTrack(track)
		if err != nil {
			c.mut.Unlock()
			c.closeEndpoints(local, remote)
			return fmt.Errorf("failed to add track: %w", err)
		}
		go c.readRTCP(sender)
	}

	c.local = local
	c.remote = remote
	c.remoteStats = remotePC
	c.rtpStats = rtpStats
	c.state = StateNegotiating
	c.mut.Unlock()

	c.notifyState(StateNegotiating)

	return nil
}

func (c *Controller) wire(local, remote *endpoint) {
	forward := func(to *endpoint) func(*webrtc.ICECandidate) {
		return func(candidate *webrtc.ICECandidate) {
			if candidate == nil {
				return
			}
			c.log.Trace("handing over candidate", mlog.String("to", to.name), mlog.String("candidate", candidate.String()))
			if err := to.addRemoteCandidate(candidate.ToJSON()); err != nil {
				c.metrics.IncRTCErrors("ice")
				c.log.Error("failed to hand over candidate", mlog.String("to", to.name), mlog.Err(err))
			}
		}
	}
	local.pc.OnICECandidate(forward(remote))
	remote.pc.OnICECandidate(forward(local))

	remote.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.log.Debug("received remote track",
			mlog.String("trackID", track.ID()),
			mlog.String("streamID", track.StreamID()),
			mlog.String("mimeType", track.Codec().MimeType))
		c.mut.Lock()
		c.inbound = append(c.inbound, inboundTrack{
			ssrc:      track.SSRC(),
			kind:      track.Kind(),
			clockRate: track.Codec().ClockRate,
		})
		c.mut.Unlock()
		c.remotePreview.BindTrack(track)
	})

	remote.pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		c.metrics.IncRTCConnState(st.String())
		c.log.Debug("remote endpoint connection state changed", mlog.String("state", st.String()))
		if st == webrtc.PeerConnectionStateConnected {
			c.transition(StateNegotiating, StateConnected)
		}
	})

	local.pc.OnNegotiationNeeded(func() {
		if !c.negotiated.CompareAndSwap(false, true) {
			c.log.Debug("ignoring renegotiation request")
			return
		}
		if err := negotiate(local, remote); err != nil {
			c.metrics.IncRTCErrors("negotiation")
			c.log.Error("negotiation failed", mlog.Err(err))
		}
	})
}

// negotiate runs the offer/answer exchange by handing descriptions directly
// from one endpoint to the other.
func negotiate(local, remote *endpoint) error {
	offer, err := local.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := local.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	if err := remote.setRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := remote.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := remote.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}

	return local.setRemoteDescription(answer)
}

func (c *Controller) readRTCP(sender *webrtc.RTPSender) {
	for {
		pkts, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, pkt := range pkts {
			switch pkt.(type) {
			case *rtcp.PictureLossIndication:
				c.metrics.IncRTCPPackets("pli")
			case *rtcp.FullIntraRequest:
				c.metrics.IncRTCPPackets("fir")
			case *rtcp.TransportLayerNack:
				c.metrics.IncRTCPPackets("nack")
			case *rtcp.ReceiverReport:
				c.metrics.IncRTCPPackets("rr")
			case *rtcp.ReceiverEstimatedMaximumBitrate:
				c.metrics.IncRTCPPackets("remb")
			}
		}
	}
}

func (c *Controller) transition(from, to SessionState) {
	c.mut.Lock()
	if c.state != from {
		c.mut.Unlock()
		return
	}
	c.state = to
	c.mut.Unlock()

	c.notifyState(to)
}

func (c *Controller) notifyState(st SessionState) {
	c.log.Info("session state changed", mlog.String("state", st.String()))
	c.metrics.SetSessionState(st.String())
	if c.stateCb != nil {
		c.stateCb(st)
	}
}

func (c *Controller) closeEndpoints(endpoints ...*endpoint) {
	for _, e := range endpoints {
		if e == nil {
			continue
		}
		if err := e.close(); err != nil {
			c.log.Error("failed to close endpoint", mlog.Err(err))
		}
	}
}

// Stop stops polling, waiting for any in progress collection to finish, then
// closes the endpoints and the local stream.
func (c *Controller) Stop() error {
	c.mut.Lock()
	if !c.started {
		c.mut.Unlock()
		return ErrNotStarted
	}
	c.started = false
	c.stopped = true
	stopCh, doneCh := c.stopCh, c.doneCh
	c.mut.Unlock()

	c.log.Debug("stopping stats collector")
	close(stopCh)
	<-doneCh

	c.mut.Lock()
	local, remote, stream := c.local, c.remote, c.localStream
	c.local, c.remote, c.remoteStats, c.localStream = nil, nil, nil, nil
	c.rtpStats, c.inbound = nil, nil
	c.mut.Unlock()

	c.closeEndpoints(local, remote)

	if stream != nil {
		if err := stream.Close(); err != nil {
			return fmt.Errorf("failed to close local stream: %w", err)
		}
	}

	return nil
}
