// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const webrtcModulePath = "github.com/pion/webrtc/v4"

// Set at build time through -ldflags.
var (
	buildVersion string
	buildHash    string
	buildDate    string
)

type VersionInfo struct {
	BuildDate    string `json:"buildDate"`
	BuildVersion string `json:"buildVersion"`
	BuildHash    string `json:"buildHash"`
	GoVersion    string `json:"goVersion"`
	GoOS         string `json:"goOS"`
	GoArch       string `json:"goArch"`

	// WebRTCVersion is the version of the pion/webrtc module linked in the
	// binary, if known.
	WebRTCVersion string `json:"webrtcVersion,omitempty"`
}

func getVersionInfo() VersionInfo {
	return VersionInfo{
		BuildDate:     buildDate,
		BuildVersion:  buildVersion,
		BuildHash:     buildHash,
		GoVersion:     runtime.Version(),
		GoOS:          runtime.GOOS,
		GoArch:        runtime.GOARCH,
		WebRTCVersion: webrtcVersion(),
	}
}

func webrtcVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == webrtcModulePath {
			return dep.Version
		}
	}
	return ""
}

func (v VersionInfo) logFields() []mlog.Field {
	return []mlog.Field{
		mlog.String("buildDate", v.BuildDate),
		mlog.String("buildVersion", v.BuildVersion),
		mlog.String("buildHash", v.BuildHash),
		mlog.String("goVersion", v.GoVersion),
		mlog.String("goOS", v.GoOS),
		mlog.String("goArch", v.GoArch),
		mlog.String("webrtcVersion", v.WebRTCVersion),
	}
}

func (s *Service) getVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(getVersionInfo()); err != nil {
		s.log.Error("failed to encode data", mlog.Err(err))
	}
}
