// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// endpoint is one side of the loopback connection.
type endpoint struct {
	name string
	pc   *webrtc.PeerConnection

	// Candidates cannot be added until the remote description is set, so we
	// queue them until that happens.
	pendingCandidates []webrtc.ICECandidateInit

	mut sync.Mutex
}

func newEndpoint(name string, pc *webrtc.PeerConnection) *endpoint {
	return &endpoint{
		name: name,
		pc:   pc,
	}
}

func (e *endpoint) addRemoteCandidate(c webrtc.ICECandidateInit) error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if e.pc.RemoteDescription() == nil {
		e.pendingCandidates = append(e.pendingCandidates, c)
		return nil
	}

	if err := e.pc.AddICECandidate(c); err != nil {
		return fmt.Errorf("failed to add remote candidate: %w", err)
	}

	return nil
}

func (e *endpoint) setRemoteDescription(sdp webrtc.SessionDescription) error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if err := e.pc.SetRemoteDescription(sdp); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	for _, c := range e.pendingCandidates {
		if err := e.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("failed to add queued remote candidate: %w", err)
		}
	}
	e.pendingCandidates = nil

	return nil
}

func (e *endpoint) close() error {
	if err := e.pc.Close(); err != nil {
		return fmt.Errorf("failed to close %s endpoint: %w", e.name, err)
	}
	return nil
}
