// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const systemSampleDuration = time.Second

type SystemInfo struct {
	// CPULoad is the fraction of total CPU time spent not idle during the
	// sample.
	CPULoad float64 `json:"cpu_load"`
	// ProcessCPUSeconds is the total CPU time consumed by this process.
	ProcessCPUSeconds float64 `json:"process_cpu_seconds"`
	// ProcessRSS is the resident memory of this process in bytes.
	ProcessRSS int   `json:"process_rss"`
	NumCPU     int   `json:"num_cpu"`
	Goroutines int   `json:"goroutines"`
	Sample     int64 `json:"sample_ms"`
}

func (s *Service) getSystemInfo(w http.ResponseWriter, _ *http.Request) {
	info := SystemInfo{
		NumCPU: runtime.NumCPU(),
		Sample: systemSampleDuration.Milliseconds(),
	}

	st1, err1 := s.proc.Stat()
	t0 := time.Now()
	time.Sleep(systemSampleDuration)
	st2, err2 := s.proc.Stat()
	t1 := time.Now()
	if err1 == nil && err2 == nil {
		idleDiff := st2.CPUTotal.Idle - st1.CPUTotal.Idle
		available := t1.Sub(t0).Seconds() * float64(info.NumCPU)
		if available > 0 {
			info.CPULoad = max(0, 1-idleDiff/available)
		}
	} else {
		if err1 != nil {
			s.log.Error("failed to get cpu stat", mlog.Err(err1))
		}
		if err2 != nil {
			s.log.Error("failed to get cpu stat", mlog.Err(err2))
		}
	}

	if self, err := s.proc.Self(); err == nil {
		if st, err := self.Stat(); err == nil {
			info.ProcessCPUSeconds = st.CPUTime()
			info.ProcessRSS = st.ResidentMemory()
		} else {
			s.log.Error("failed to get process stat", mlog.Err(err))
		}
	} else {
		s.log.Error("failed to get process", mlog.Err(err))
	}

	info.Goroutines = runtime.NumGoroutine()

	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&info); err != nil {
		s.log.Error("failed to encode data", mlog.Err(err))
	}
}
