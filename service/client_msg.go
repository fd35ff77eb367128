// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"encoding/json"
	"fmt"

	"github.com/mattermost/rtcstats/service/chart"
	"github.com/mattermost/rtcstats/service/rtc"
	"github.com/mattermost/rtcstats/service/ws"

	"github.com/vmihailenco/msgpack/v5"
)

type ClientMessage struct {
	Type string `json:"type" msgpack:"type"`
	Data any    `json:"data,omitempty" msgpack:"data,omitempty"`
}

const (
	// Client to server.
	ClientMessageStart = "start"

	// Server to client.
	ClientMessageSnapshot     = "snapshot"
	ClientMessageChartPoint   = "chart_point"
	ClientMessagePreview      = "preview"
	ClientMessageSessionState = "session_state"
	ClientMessageError        = "error"
)

// SnapshotData is sent to every new connection so that it can draw the
// current series and previews.
type SnapshotData struct {
	Charts   []chart.Snapshot   `json:"charts" msgpack:"charts"`
	Previews []rtc.SurfaceState `json:"previews" msgpack:"previews"`
	State    string             `json:"state" msgpack:"state"`
}

var _ msgpack.CustomEncoder = (*ClientMessage)(nil)

func (cm *ClientMessage) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeMulti(cm.Type, cm.Data)
}

var _ msgpack.CustomDecoder = (*ClientMessage)(nil)

func (cm *ClientMessage) DecodeMsgpack(dec *msgpack.Decoder) error {
	msgType, err := dec.DecodeString()
	if err != nil {
		return fmt.Errorf("failed to decode msg.Type: %w", err)
	}
	cm.Type = msgType

	switch cm.Type {
	case ClientMessageSnapshot:
		var data SnapshotData
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}
		cm.Data = data
	case ClientMessageChartPoint:
		var data chart.Update
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("failed to decode chart update: %w", err)
		}
		cm.Data = data
	case ClientMessagePreview:
		var data rtc.SurfaceState
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("failed to decode preview state: %w", err)
		}
		cm.Data = data
	default:
		data, err := dec.DecodeInterface()
		if err != nil {
			return fmt.Errorf("failed to decode msg.Data: %w", err)
		}
		cm.Data = data
	}

	return nil
}

func NewClientMessage(msgType string, data any) *ClientMessage {
	return &ClientMessage{
		Type: msgType,
		Data: data,
	}
}

func (cm *ClientMessage) Pack() ([]byte, error) {
	return msgpack.Marshal(&cm)
}

func (cm *ClientMessage) Unpack(data []byte) error {
	return msgpack.Unmarshal(data, &cm)
}

// Encode serializes the message with the given ws encoding.
func (cm *ClientMessage) Encode(encoding string) ([]byte, error) {
	switch encoding {
	case ws.EncodingMsgpack:
		return cm.Pack()
	case ws.EncodingJSON:
		return json.Marshal(cm)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// decodeClientMessage parses a message received from a client. Text frames
// carry JSON, binary frames carry msgpack.
func decodeClientMessage(msg ws.Message) (*ClientMessage, error) {
	var cm ClientMessage
	switch msg.Type {
	case ws.TextMessage:
		if err := json.Unmarshal(msg.Data, &cm); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
	case ws.BinaryMessage:
		if err := cm.Unpack(msg.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack message: %w", err)
		}
	default:
		return nil, fmt.Errorf("unexpected message type %s", msg.Type)
	}

	if cm.Type == "" {
		return nil, fmt.Errorf("invalid message: type should not be empty")
	}

	return &cm, nil
}
