// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"testing"

	"github.com/mattermost/rtcstats/service/chart"
	"github.com/mattermost/rtcstats/service/rtc"
	"github.com/mattermost/rtcstats/service/ws"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestClientMessage(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		msg := NewClientMessage("", nil)
		data, err := msg.Pack()
		require.NoError(t, err)
		msg2 := NewClientMessage("", nil)
		err = msg2.Unpack(data)
		require.NoError(t, err)
		require.Equal(t, msg, msg2)
	})

	t.Run("msgpack array layout", func(t *testing.T) {
		msg := NewClientMessage(ClientMessageStart, nil)
		data, err := msg.Pack()
		require.NoError(t, err)

		var fields []any
		require.NoError(t, msgpack.Unmarshal(data, &fields))
		require.Equal(t, []any{ClientMessageStart, nil}, fields)
	})

	t.Run("with chart point type", func(t *testing.T) {
		update := chart.Update{
			ChartID: "rtt",
			Point:   chart.Point{X: 1000, Y: 0.05},
			Mode:    chart.UpdateModeNone,
		}
		msg := NewClientMessage(ClientMessageChartPoint, update)
		data, err := msg.Pack()
		require.NoError(t, err)
		msg2 := &ClientMessage{}
		err = msg2.Unpack(data)
		require.NoError(t, err)
		require.Equal(t, msg, msg2)
		require.Equal(t, update, msg2.Data)
	})

	t.Run("with preview type", func(t *testing.T) {
		st := rtc.SurfaceState{
			Name:     rtc.SurfaceRemote,
			Width:    rtc.PreviewWidth,
			Height:   rtc.PreviewHeight,
			Bound:    true,
			StreamID: "stream_id",
			Packets:  10,
			Bytes:    1000,
		}
		msg := NewClientMessage(ClientMessagePreview, st)
		data, err := msg.Pack()
		require.NoError(t, err)
		msg2 := &ClientMessage{}
		err = msg2.Unpack(data)
		require.NoError(t, err)
		require.Equal(t, st, msg2.Data)
	})

	t.Run("with snapshot type", func(t *testing.T) {
		snapshot := SnapshotData{
			Charts: []chart.Snapshot{
				{
					Config: chart.NewConfig("rtt", "RTT", "red", chart.RealtimeScale{Duration: 1, Refresh: 1}),
					Points: []chart.Point{{X: 1, Y: 2}},
				},
			},
			Previews: []rtc.SurfaceState{{Name: rtc.SurfaceLocal}},
			State:    rtc.StateIdle.String(),
		}
		msg := NewClientMessage(ClientMessageSnapshot, snapshot)
		data, err := msg.Pack()
		require.NoError(t, err)
		msg2 := &ClientMessage{}
		err = msg2.Unpack(data)
		require.NoError(t, err)
		require.Equal(t, snapshot, msg2.Data)
	})
}

func TestClientMessageEncode(t *testing.T) {
	msg := NewClientMessage(ClientMessageSessionState, "connected")

	t.Run("json", func(t *testing.T) {
		data, err := msg.Encode(ws.EncodingJSON)
		require.NoError(t, err)
		require.JSONEq(t, `{"type":"session_state","data":"connected"}`, string(data))
	})

	t.Run("msgpack", func(t *testing.T) {
		data, err := msg.Encode(ws.EncodingMsgpack)
		require.NoError(t, err)
		var msg2 ClientMessage
		require.NoError(t, msg2.Unpack(data))
		require.Equal(t, *msg, msg2)
	})

	t.Run("unsupported", func(t *testing.T) {
		data, err := msg.Encode("xml")
		require.EqualError(t, err, `unsupported encoding "xml"`)
		require.Nil(t, data)
	})
}

func TestDecodeClientMessage(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cm, err := decodeClientMessage(ws.Message{Type: ws.TextMessage, Data: []byte(`{"type":"start"}`)})
		require.NoError(t, err)
		require.Equal(t, ClientMessageStart, cm.Type)
	})

	t.Run("msgpack", func(t *testing.T) {
		data, err := NewClientMessage(ClientMessageStart, nil).Pack()
		require.NoError(t, err)
		cm, err := decodeClientMessage(ws.Message{Type: ws.BinaryMessage, Data: data})
		require.NoError(t, err)
		require.Equal(t, ClientMessageStart, cm.Type)
	})

	t.Run("invalid json", func(t *testing.T) {
		cm, err := decodeClientMessage(ws.Message{Type: ws.TextMessage, Data: []byte(`{`)})
		require.Error(t, err)
		require.Nil(t, cm)
	})

	t.Run("missing type", func(t *testing.T) {
		data, err := json.Marshal(map[string]any{"data": 1})
		require.NoError(t, err)
		cm, err := decodeClientMessage(ws.Message{Type: ws.TextMessage, Data: data})
		require.EqualError(t, err, "invalid message: type should not be empty")
		require.Nil(t, cm)
	})

	t.Run("unexpected type", func(t *testing.T) {
		cm, err := decodeClientMessage(ws.Message{Type: ws.OpenMessage})
		require.EqualError(t, err, "unexpected message type open")
		require.Nil(t, cm)
	})
}
