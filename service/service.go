// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/mattermost/rtcstats/service/api"
	"github.com/mattermost/rtcstats/service/chart"
	"github.com/mattermost/rtcstats/service/perf"
	"github.com/mattermost/rtcstats/service/rtc"
	"github.com/mattermost/rtcstats/service/ws"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/prometheus/procfs"
)

const (
	ChartIDBitrate    = "video_bitrate"
	ChartIDRTT        = "rtt"
	ChartIDJitter     = "jitter"
	ChartIDPacketLoss = "packet_loss"

	chartBorderColor = "rgb(255, 0, 0, 1)"
	metricsNamespace = "rtcstats"
)

//go:embed static
var staticFS embed.FS

type Service struct {
	cfg        Config
	apiServer  *api.Server
	wsServer   *ws.Server
	controller *rtc.Controller
	charts     []*chart.Chart
	metrics    *perf.Metrics
	proc       procfs.FS
	log        mlog.LoggerIFace
	wg         sync.WaitGroup
}

func New(cfg Config, log mlog.LoggerIFace) (*Service, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("log should not be nil")
	}

	s := &Service{
		log:     log,
		cfg:     cfg,
		metrics: perf.NewMetrics(metricsNamespace, nil),
	}

	var err error
	s.proc, err = procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}

	if err := s.initCharts(); err != nil {
		return nil, err
	}

	s.controller, err = rtc.NewController(cfg.RTC, log, s.metrics, rtc.Charts{
		Bitrate:    s.charts[0],
		RTT:        s.charts[1],
		Jitter:     s.charts[2],
		PacketLoss: s.charts[3],
	}, rtc.WithStateCb(s.onSessionState))
	if err != nil {
		return nil, fmt.Errorf("failed to create rtc controller: %w", err)
	}
	s.controller.LocalPreview().OnChange(s.onPreviewChange)
	s.controller.RemotePreview().OnChange(s.onPreviewChange)

	s.apiServer, err = api.NewServer(cfg.API.HTTP, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create api server: %w", err)
	}

	var wsOpts []ws.Option
	if len(cfg.API.HTTP.AllowedOrigins) > 0 {
		wsOpts = append(wsOpts, ws.WithCheckOrigin(s.apiServer.OriginAllowed))
	}
	s.wsServer, err = ws.NewServer(cfg.WS, log, wsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ws server: %w", err)
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}

	s.apiServer.RegisterHandler("/", http.FileServerFS(static))
	s.apiServer.RegisterHandler("/ws", s.wsServer)
	s.apiServer.RegisterMethodHandleFunc("/start", s.postStart, http.MethodPost)
	s.apiServer.RegisterMethodHandleFunc("/charts", s.getCharts, http.MethodGet)
	s.apiServer.RegisterMethodHandleFunc("/version", s.getVersion, http.MethodGet)
	s.apiServer.RegisterMethodHandleFunc("/system", s.getSystemInfo, http.MethodGet)
	s.apiServer.RegisterHandler("/metrics", s.metrics.Handler())

	return s, nil
}

func (s *Service) initCharts() error {
	defs := []struct {
		id    string
		label string
	}{
		{ChartIDBitrate, "video Bitrate"},
		{ChartIDRTT, "RTT"},
		{ChartIDJitter, "jitter"},
		{ChartIDPacketLoss, "packet loss"},
	}

	renderer := chart.RendererFunc(s.renderChartUpdate)
	for _, def := range defs {
		c, err := chart.New(chart.NewConfig(def.id, def.label, chartBorderColor, s.cfg.Charts), renderer)
		if err != nil {
			return fmt.Errorf("failed to create %s chart: %w", def.id, err)
		}
		s.charts = append(s.charts, c)
	}

	return nil
}

func (s *Service) Start() error {
	s.log.Info("rtcstats: starting service", getVersionInfo().logFields()...)

	if err := s.apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	s.wg.Add(1)
	go s.wsReader()

	// Failing to acquire media leaves the charts empty but the page and the
	// stats loop keep working.
	if err := s.controller.Start(context.Background()); err != nil {
		s.log.Error("failed to start rtc controller", mlog.Err(err))
	}

	return nil
}

func (s *Service) Stop() error {
	if err := s.controller.Stop(); err != nil && !errors.Is(err, rtc.ErrNotStarted) {
		s.log.Error("failed to stop rtc controller", mlog.Err(err))
	}

	s.wsServer.Close()
	s.wg.Wait()

	if err := s.apiServer.Stop(); err != nil {
		return fmt.Errorf("failed to stop API server: %w", err)
	}

	for _, c := range s.charts {
		c.Destroy()
	}

	return nil
}

// StartSession is the user action creating the media session.
func (s *Service) StartSession() error {
	if err := s.controller.StartSession(); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

func (s *Service) snapshot() SnapshotData {
	data := SnapshotData{
		Charts: make([]chart.Snapshot, 0, len(s.charts)),
		Previews: []rtc.SurfaceState{
			s.controller.LocalPreview().State(),
			s.controller.RemotePreview().State(),
		},
		State: s.controller.State().String(),
	}
	for _, c := range s.charts {
		data.Charts = append(data.Charts, c.Snapshot())
	}
	return data
}

func (s *Service) renderChartUpdate(u chart.Update) {
	s.metrics.IncChartPoints(u.ChartID)
	s.broadcast(NewClientMessage(ClientMessageChartPoint, u))
}

func (s *Service) onPreviewChange(st rtc.SurfaceState) {
	s.broadcast(NewClientMessage(ClientMessagePreview, st))
}

func (s *Service) onSessionState(st rtc.SessionState) {
	s.broadcast(NewClientMessage(ClientMessageSessionState, st.String()))
}
