// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

// SessionState tracks the lifecycle of the media session. There is no
// transition back to StateIdle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateNegotiating
	StateConnected
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
