// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"errors"
	"io"
	"sync"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

const (
	PreviewWidth  = 160
	PreviewHeight = 120

	SurfaceLocal  = "local"
	SurfaceRemote = "remote"
)

// SurfaceState describes what a preview surface is currently showing.
type SurfaceState struct {
	Name     string `json:"name" msgpack:"name"`
	Width    int    `json:"width" msgpack:"width"`
	Height   int    `json:"height" msgpack:"height"`
	Bound    bool   `json:"bound" msgpack:"bound"`
	StreamID string `json:"streamID,omitempty" msgpack:"streamID,omitempty"`
	TrackID  string `json:"trackID,omitempty" msgpack:"trackID,omitempty"`
	MimeType string `json:"mimeType,omitempty" msgpack:"mimeType,omitempty"`
	Packets  uint64 `json:"packets" msgpack:"packets"`
	Bytes    uint64 `json:"bytes" msgpack:"bytes"`
}

// Surface is a preview sink for either the local stream or the remote track.
type Surface struct {
	state    SurfaceState
	onChange func(SurfaceState)
	log      mlog.LoggerIFace
	mut      sync.RWMutex
}

func NewSurface(name string, log mlog.LoggerIFace) *Surface {
	return &Surface{
		state: SurfaceState{
			Name:   name,
			Width:  PreviewWidth,
			Height: PreviewHeight,
		},
		log: log,
	}
}

// OnChange sets a callback fired every time a source is bound to the surface.
func (s *Surface) OnChange(cb func(SurfaceState)) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.onChange = cb
}

func (s *Surface) State() SurfaceState {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return s.state
}

func (s *Surface) bind(update func(st *SurfaceState)) {
	s.mut.Lock()
	update(&s.state)
	s.state.Bound = true
	st := s.state
	cb := s.onChange
	s.mut.Unlock()

	if cb != nil {
		cb(st)
	}
}

// BindStream shows a local stream on the surface.
func (s *Surface) BindStream(stream *LocalStream) {
	s.bind(func(st *SurfaceState) {
		st.StreamID = stream.ID()
		if len(stream.tracks) > 0 {
			st.TrackID = stream.tracks[0].ID()
			st.MimeType = stream.tracks[0].Codec().MimeType
		}
	})
}

// BindTrack shows a remote track on the surface. The track is read until it
// ends.
func (s *Surface) BindTrack(track *webrtc.TrackRemote) {
	s.bind(func(st *SurfaceState) {
		st.StreamID = track.StreamID()
		st.TrackID = track.ID()
		st.MimeType = track.Codec().MimeType
		st.Packets = 0
		st.Bytes = 0
	})

	go func() {
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.log.Debug("stopped reading remote track", mlog.String("trackID", track.ID()), mlog.Err(err))
				}
				return
			}
			s.consume(pkt)
		}
	}()
}

func (s *Surface) consume(pkt *rtp.Packet) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.state.Packets++
	s.state.Bytes += uint64(len(pkt.Payload))
}
