// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	t.Run("empty struct", func(t *testing.T) {
		var cfg Config
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid ReadBufferSize value: should be greater than zero", err.Error())
	})

	t.Run("invalid WriteBufferSize", func(t *testing.T) {
		var cfg Config
		cfg.ReadBufferSize = 1024
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid WriteBufferSize value: should be greater than zero", err.Error())
	})

	t.Run("invalid PingInterval", func(t *testing.T) {
		var cfg Config
		cfg.ReadBufferSize = 1024
		cfg.WriteBufferSize = 1024
		cfg.PingInterval = 10 * time.Millisecond
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, "invalid PingInterval value: should be at least 1 second", err.Error())
	})

	t.Run("invalid Encoding", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		cfg.Encoding = "xml"
		err := cfg.IsValid()
		require.Error(t, err)
		require.Equal(t, `invalid Encoding value "xml": should be either "json" or "msgpack"`, err.Error())
	})

	t.Run("valid", func(t *testing.T) {
		var cfg Config
		cfg.SetDefaults()
		require.NoError(t, cfg.IsValid())
		require.Equal(t, TextMessage, cfg.MessageType())

		cfg.Encoding = EncodingMsgpack
		require.NoError(t, cfg.IsValid())
		require.Equal(t, BinaryMessage, cfg.MessageType())
	})
}
