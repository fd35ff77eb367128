// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"fmt"
	"net/http"
)

type Option func(s *Server) error

// WithUpgradeCb lets the caller set an optional callback to be called prior to
// performing the websocket upgrade.
func WithUpgradeCb(cb UpgradeCb) Option {
	return func(s *Server) error {
		s.upgradeCb = cb
		return nil
	}
}

// WithCheckOrigin overrides the origin check done during the upgrade. By
// default only same host requests are accepted.
func WithCheckOrigin(cb func(r *http.Request) bool) Option {
	return func(s *Server) error {
		if cb == nil {
			return fmt.Errorf("check origin callback should not be nil")
		}
		s.checkOrigin = cb
		return nil
	}
}
