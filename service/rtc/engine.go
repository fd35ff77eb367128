// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"fmt"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/ice/v4"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/stats"
	"github.com/pion/webrtc/v4"
)

const videoPayloadType = 96

var (
	rtpVideoCodec = webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeVP8,
		ClockRate: 90000,
		RTCPFeedback: []webrtc.RTCPFeedback{
			{Type: "goog-remb"},
			{Type: "ccm", Parameter: "fir"},
			{Type: "nack"},
			{Type: "nack", Parameter: "pli"},
		},
	}
)

func initMediaEngine() (*webrtc.MediaEngine, error) {
	var m webrtc.MediaEngine
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: rtpVideoCodec,
		PayloadType:        videoPayloadType,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("failed to register codec: %w", err)
	}
	return &m, nil
}

// initInterceptors registers NACK, RTCP reports and TWCC plus the stats
// interceptor which records the inbound RTP streams. The stats getter is
// delivered on the returned channel once the peer connection is built.
func initInterceptors(m *webrtc.MediaEngine) (*interceptor.Registry, <-chan stats.Getter, error) {
	var i interceptor.Registry
	if err := webrtc.RegisterDefaultInterceptors(m, &i); err != nil {
		return nil, nil, err
	}

	statsInterceptor, err := stats.NewInterceptor()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init stats interceptor: %w", err)
	}
	statsGetterCh := make(chan stats.Getter, 1)
	statsInterceptor.OnNewPeerConnection(func(_ string, getter stats.Getter) {
		select {
		case statsGetterCh <- getter:
		default:
		}
	})
	i.Add(statsInterceptor)

	return &i, statsGetterCh, nil
}

func initSettingEngine(cfg Config, log mlog.LoggerIFace) (webrtc.SettingEngine, error) {
	sEngine := webrtc.SettingEngine{
		LoggerFactory: loggerFactory{log: log},
	}
	sEngine.SetICEMulticastDNSMode(ice.MulticastDNSModeDisabled)
	networkTypes := []webrtc.NetworkType{
		webrtc.NetworkTypeUDP4,
	}
	if cfg.EnableIPv6 {
		networkTypes = append(networkTypes, webrtc.NetworkTypeUDP6)
	}
	sEngine.SetNetworkTypes(networkTypes)
	sEngine.SetIncludeLoopbackCandidate(true)

	if cfg.ICEPortUDPMin != 0 && cfg.ICEPortUDPMax != 0 {
		if err := sEngine.SetEphemeralUDPPortRange(uint16(cfg.ICEPortUDPMin), uint16(cfg.ICEPortUDPMax)); err != nil {
			return webrtc.SettingEngine{}, fmt.Errorf("failed to set port range: %w", err)
		}
	}

	return sEngine, nil
}

// newPeerConnection creates one endpoint along with the getter for its RTP
// stream statistics. Every endpoint gets its own engines so that interceptor
// state is never shared between the two sides.
func newPeerConnection(cfg Config, log mlog.LoggerIFace) (*webrtc.PeerConnection, stats.Getter, error) {
	mEngine, err := initMediaEngine()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init media engine: %w", err)
	}

	iRegistry, statsGetterCh, err := initInterceptors(mEngine)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init interceptors: %w", err)
	}

	sEngine, err := initSettingEngine(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init setting engine: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mEngine),
		webrtc.WithSettingEngine(sEngine),
		webrtc.WithInterceptorRegistry(iRegistry),
	)

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   cfg.ICEServers.toWebRTC(),
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	// The interceptors are built as part of creating the peer connection.
	select {
	case getter := <-statsGetterCh:
		return pc, getter, nil
	default:
		if closeErr := pc.Close(); closeErr != nil {
			log.Error("failed to close peer connection", mlog.Err(closeErr))
		}
		return nil, nil, fmt.Errorf("stats getter was not initialized")
	}
}
