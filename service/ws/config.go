// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"fmt"
	"time"
)

const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

type Config struct {
	// ReadBufferSize specifies the size of the internal buffer
	// used to read from a ws connection.
	ReadBufferSize int `toml:"read_buffer_size"`
	// WriteBufferSize specifies the size of the internal buffer
	// used to write to a ws connection.
	WriteBufferSize int `toml:"write_buffer_size"`
	// PingInterval specifies the interval at which the server should send ping
	// messages to its connections. If the client doesn't respond in 2*PingInterval
	// the server will consider the client as disconnected and drop the connection.
	PingInterval time.Duration `toml:"ping_interval"`
	// Encoding specifies how messages to clients are encoded. Can be either
	// "json" (text frames) or "msgpack" (binary frames).
	Encoding string `toml:"encoding"`
}

func (c Config) IsValid() error {
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("invalid ReadBufferSize value: should be greater than zero")
	}
	if c.WriteBufferSize <= 0 {
		return fmt.Errorf("invalid WriteBufferSize value: should be greater than zero")
	}
	if c.PingInterval < time.Second {
		return fmt.Errorf("invalid PingInterval value: should be at least 1 second")
	}
	if c.Encoding != EncodingJSON && c.Encoding != EncodingMsgpack {
		return fmt.Errorf("invalid Encoding value %q: should be either %q or %q", c.Encoding, EncodingJSON, EncodingMsgpack)
	}

	return nil
}

func (c *Config) SetDefaults() {
	c.ReadBufferSize = 4096
	c.WriteBufferSize = 4096
	c.PingInterval = 10 * time.Second
	c.Encoding = EncodingJSON
}

// MessageType returns the frame type matching the configured encoding.
func (c Config) MessageType() MessageType {
	if c.Encoding == EncodingMsgpack {
		return BinaryMessage
	}
	return TextMessage
}
