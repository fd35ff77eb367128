// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mattermost/rtcstats/service/rtc"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

func (s *Service) postStart(w http.ResponseWriter, r *http.Request) {
	data := newHTTPData()
	defer s.httpAudit("postStart", data, w, r)

	if err := s.StartSession(); err != nil {
		data.err = err.Error()
		switch {
		case errors.Is(err, rtc.ErrNoLocalMedia), errors.Is(err, rtc.ErrSessionStarted):
			data.code = http.StatusConflict
		default:
			data.code = http.StatusInternalServerError
		}
		return
	}

	data.code = http.StatusAccepted
	data.resData["state"] = s.controller.State().String()
}

func (s *Service) getCharts(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		s.log.Error("failed to encode data", mlog.Err(err))
	}
}
