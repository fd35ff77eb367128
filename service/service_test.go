// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/mattermost/rtcstats/service/chart"
	"github.com/mattermost/rtcstats/service/rtc"
	"github.com/mattermost/rtcstats/service/ws"

	"github.com/gorilla/websocket"
	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, err := mlog.NewLogger()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, log.Shutdown())
	}()

	t.Run("invalid config", func(t *testing.T) {
		s, err := New(Config{}, log)
		require.Error(t, err)
		require.Nil(t, s)
	})

	t.Run("missing logger", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		s, err := New(cfg, nil)
		require.EqualError(t, err, "log should not be nil")
		require.Nil(t, s)
	})

	t.Run("charts", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		s, err := New(cfg, log)
		require.NoError(t, err)
		require.Len(t, s.charts, 4)

		expected := []struct {
			id    string
			label string
		}{
			{ChartIDBitrate, "video Bitrate"},
			{ChartIDRTT, "RTT"},
			{ChartIDJitter, "jitter"},
			{ChartIDPacketLoss, "packet loss"},
		}
		for i, e := range expected {
			chartCfg := s.charts[i].Config()
			require.Equal(t, e.id, chartCfg.ID)
			require.Equal(t, e.label, chartCfg.Label)
			require.Equal(t, chartBorderColor, chartCfg.BorderColor)
			require.Equal(t, 300, chartCfg.Width)
			require.Equal(t, 200, chartCfg.Height)
			require.Equal(t, cfg.Charts, *chartCfg.X.Realtime)
			require.True(t, chartCfg.Y.BeginAtZero)
		}
	})
}

func TestIndex(t *testing.T) {
	th := SetupTestHelper(t, nil)
	defer th.Teardown()

	resp, err := http.Get(th.apiURL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "chartjs-plugin-streaming")
	require.Contains(t, string(body), `id="start"`)
}

func TestWSSnapshot(t *testing.T) {
	th := SetupTestHelper(t, nil)
	defer th.Teardown()

	th.srvc.charts[1].PushData(time.Now().UnixMilli(), 0.05)

	c, msg := th.dialWS()
	defer c.Close()

	data, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var snapshot SnapshotData
	require.NoError(t, json.Unmarshal(data, &snapshot))

	require.Len(t, snapshot.Charts, 4)
	require.Equal(t, ChartIDRTT, snapshot.Charts[1].Config.ID)
	require.Len(t, snapshot.Charts[1].Points, 1)
	require.Equal(t, 0.05, snapshot.Charts[1].Points[0].Y)
	require.Len(t, snapshot.Previews, 2)
	require.Equal(t, rtc.SurfaceLocal, snapshot.Previews[0].Name)
	require.Equal(t, rtc.SurfaceRemote, snapshot.Previews[1].Name)
	require.Equal(t, rtc.StateIdle.String(), snapshot.State)
}

func TestWSChartPoint(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		th := SetupTestHelper(t, nil)
		defer th.Teardown()

		c, _ := th.dialWS()
		defer c.Close()

		th.srvc.charts[2].PushData(2000, 0.01)

		msg := th.readWS(c)
		require.Equal(t, ClientMessageChartPoint, msg.Type)
		data, ok := msg.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, ChartIDJitter, data["chartID"])
		require.Equal(t, "none", data["mode"])
	})

	t.Run("msgpack", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		cfg.API.HTTP.ListenAddress = ":0"
		cfg.RTC.Media.Source = rtc.MediaSourceNone
		cfg.WS.Encoding = ws.EncodingMsgpack
		th := SetupTestHelper(t, &cfg)
		defer th.Teardown()

		c, _ := th.dialWS()
		defer c.Close()

		now := time.Now().UnixMilli()
		th.srvc.charts[0].PushData(now, 8)

		msg := th.readWS(c)
		require.Equal(t, ClientMessageChartPoint, msg.Type)
		update, ok := msg.Data.(chart.Update)
		require.True(t, ok)
		require.Equal(t, ChartIDBitrate, update.ChartID)
		require.Equal(t, now, update.Point.X)
		require.Equal(t, 8.0, update.Point.Y)
	})
}

func TestWSStart(t *testing.T) {
	th := SetupTestHelper(t, nil)
	defer th.Teardown()

	c, _ := th.dialWS()
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"type":"start"}`)))

	msg := th.readWS(c)
	require.Equal(t, ClientMessageError, msg.Type)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	require.Contains(t, data["error"], rtc.ErrNoLocalMedia.Error())
}

func TestPostStart(t *testing.T) {
	th := SetupTestHelper(t, nil)
	defer th.Teardown()

	t.Run("invalid method", func(t *testing.T) {
		resp, err := http.Get(th.apiURL + "/start")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("no local media", func(t *testing.T) {
		resp, err := http.Post(th.apiURL+"/start", "", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		var data map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&data))
		require.Contains(t, data["error"], rtc.ErrNoLocalMedia.Error())
	})
}

func TestGetCharts(t *testing.T) {
	th := SetupTestHelper(t, nil)
	defer th.Teardown()

	th.srvc.charts[3].PushData(time.Now().UnixMilli(), 2)

	resp, err := http.Get(th.apiURL + "/charts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot SnapshotData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	require.Len(t, snapshot.Charts, 4)
	require.Equal(t, ChartIDPacketLoss, snapshot.Charts[3].Config.ID)
	require.Len(t, snapshot.Charts[3].Points, 1)
}

func TestGetMetrics(t *testing.T) {
	th := SetupTestHelper(t, nil)
	defer th.Teardown()

	th.srvc.charts[1].PushData(1000, 0.05)

	resp, err := http.Get(th.apiURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `rtcstats_chart_points_total{chartID="rtt"} 1`)
}
