// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/stretchr/testify/require"
)

type TestHelper struct {
	srvc   *Service
	cfg    Config
	log    *mlog.Logger
	tb     testing.TB
	apiURL string
	wsURL  string
}

func SetupTestHelper(tb testing.TB, cfg *Config) *TestHelper {
	tb.Helper()
	var err error

	th := &TestHelper{
		tb: tb,
	}

	if cfg != nil {
		th.cfg = *cfg
	} else {
		th.cfg.SetDefaults()
		th.cfg.API.HTTP.ListenAddress = ":0"
		th.cfg.RTC.Media.Source = "none"
		th.cfg.Logger.ConsoleLevel = "ERROR"
	}

	th.log, err = mlog.NewLogger()
	require.NoError(tb, err)

	th.srvc, err = New(th.cfg, th.log)
	require.NoError(th.tb, err)
	require.NotNil(th.tb, th.srvc)

	err = th.srvc.Start()
	require.NoError(th.tb, err)

	_, port, err := net.SplitHostPort(th.srvc.apiServer.Addr())
	require.NoError(th.tb, err)
	th.apiURL = "http://localhost:" + port
	th.wsURL = "ws" + strings.TrimPrefix(th.apiURL, "http") + "/ws"

	return th
}

func (th *TestHelper) Teardown() {
	err := th.srvc.Stop()
	require.NoError(th.tb, err)

	err = th.log.Shutdown()
	require.NoError(th.tb, err)
}

// dialWS connects to the service and reads the initial snapshot.
func (th *TestHelper) dialWS() (*websocket.Conn, *ClientMessage) {
	th.tb.Helper()

	c, _, err := websocket.DefaultDialer.Dial(th.wsURL, nil)
	require.NoError(th.tb, err)

	msg := th.readWS(c)
	require.Equal(th.tb, ClientMessageSnapshot, msg.Type)

	return c, msg
}

func (th *TestHelper) readWS(c *websocket.Conn) *ClientMessage {
	th.tb.Helper()

	mt, data, err := c.ReadMessage()
	require.NoError(th.tb, err)

	var msg ClientMessage
	switch mt {
	case websocket.BinaryMessage:
		require.NoError(th.tb, msg.Unpack(data))
	default:
		require.NoError(th.tb, json.Unmarshal(data, &msg))
	}

	return &msg
}
