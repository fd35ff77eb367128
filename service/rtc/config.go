// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
)

const (
	MediaSourceSynthetic = "synthetic"
	MediaSourceIVF       = "ivf"
	MediaSourceNone      = "none"
)

type Config struct {
	// A list of ICE server (STUN/TURN) configurations to use. Endpoints run in
	// the same process so this is usually left empty.
	ICEServers ICEServers `toml:"ice_servers"`
	// ICEPortUDPMin and ICEPortUDPMax optionally restrict the range of UDP
	// ports used by both endpoints. Both should be zero to use any port.
	ICEPortUDPMin int `toml:"ice_port_udp_min"`
	ICEPortUDPMax int `toml:"ice_port_udp_max"`
	// EnableIPv6 specifies whether or not IPv6 should be used.
	EnableIPv6 bool `toml:"enable_ipv6"`
	// StatsPollIntervalMs specifies how often, in milliseconds, statistics are
	// collected from the remote endpoint.
	StatsPollIntervalMs int `toml:"stats_poll_interval_ms"`
	// Media configures the local capture device.
	Media MediaConfig `toml:"media"`
}

func (c Config) IsValid() error {
	if err := c.ICEServers.IsValid(); err != nil {
		return fmt.Errorf("invalid ICEServers value: %w", err)
	}

	if c.ICEPortUDPMin != 0 || c.ICEPortUDPMax != 0 {
		if c.ICEPortUDPMin < 1024 || c.ICEPortUDPMax > 65535 || c.ICEPortUDPMin > c.ICEPortUDPMax {
			return fmt.Errorf("invalid ICEPortUDP range: [%d, %d] is not in allowed range [1024, 65535]", c.ICEPortUDPMin, c.ICEPortUDPMax)
		}
	}

	if c.StatsPollIntervalMs <= 0 {
		return fmt.Errorf("invalid StatsPollIntervalMs value: should be greater than zero")
	}

	if err := c.Media.IsValid(); err != nil {
		return fmt.Errorf("invalid Media config: %w", err)
	}

	return nil
}

func (c *Config) SetDefaults() {
	c.StatsPollIntervalMs = 5000
	c.Media.SetDefaults()
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.StatsPollIntervalMs) * time.Millisecond
}

type MediaConfig struct {
	// Source is one of "synthetic", "ivf" or "none".
	Source string `toml:"source"`
	// File is the path to a VP8 IVF file. Required when Source is "ivf".
	File string `toml:"file"`
	// FrameRate is the number of frames per second produced by the
	// synthetic source.
	FrameRate int `toml:"frame_rate"`
	// FrameSize is the size in bytes of a synthetic frame.
	FrameSize int `toml:"frame_size"`
}

func (c MediaConfig) IsValid() error {
	switch c.Source {
	case MediaSourceSynthetic:
		if c.FrameRate < 1 || c.FrameRate > 120 {
			return fmt.Errorf("invalid FrameRate value: %d is not in allowed range [1, 120]", c.FrameRate)
		}
		if c.FrameSize <= 0 {
			return fmt.Errorf("invalid FrameSize value: should be greater than zero")
		}
	case MediaSourceIVF:
		if c.File == "" {
			return fmt.Errorf("invalid File value: should not be empty")
		}
	case MediaSourceNone:
	default:
		return fmt.Errorf("invalid Source value %q", c.Source)
	}
	return nil
}

func (c *MediaConfig) SetDefaults() {
	c.Source = MediaSourceSynthetic
	c.FrameRate = 30
	c.FrameSize = 1200
}

type ICEServerConfig struct {
	URLs       []string `toml:"urls" json:"urls"`
	Username   string   `toml:"username,omitempty" json:"username,omitempty"`
	Credential string   `toml:"credential,omitempty" json:"credential,omitempty"`
}

type ICEServers []ICEServerConfig

func (c ICEServerConfig) IsValid() error {
	if len(c.URLs) == 0 {
		return fmt.Errorf("invalid empty URLs")
	}
	for _, u := range c.URLs {
		if u == "" {
			return fmt.Errorf("invalid empty URL")
		}

		if !c.IsSTUN() && !c.IsTURN() {
			return fmt.Errorf("URL is not a valid STUN/TURN server")
		}

		if _, err := stun.ParseURI(u); err != nil {
			return fmt.Errorf("failed to parse URL %q: %w", u, err)
		}
	}
	return nil
}

func (c ICEServerConfig) IsTURN() bool {
	for _, u := range c.URLs {
		if !strings.HasPrefix(u, "turn:") && !strings.HasPrefix(u, "turns:") {
			return false
		}
	}
	return len(c.URLs) > 0
}

func (c ICEServerConfig) IsSTUN() bool {
	for _, u := range c.URLs {
		if !strings.HasPrefix(u, "stun:") && !strings.HasPrefix(u, "stuns:") {
			return false
		}
	}
	return len(c.URLs) > 0
}

func (s ICEServers) IsValid() error {
	for _, cfg := range s {
		if err := cfg.IsValid(); err != nil {
			return err
		}
	}
	return nil
}

func (s ICEServers) toWebRTC() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(s))
	for _, cfg := range s {
		servers = append(servers, webrtc.ICEServer{
			URLs:       cfg.URLs,
			Username:   cfg.Username,
			Credential: cfg.Credential,
		})
	}
	return servers
}

// Decode lets envconfig parse either a JSON list of URLs or a JSON list of
// server objects.
func (s *ICEServers) Decode(value string) error {
	var urls []string
	if err := json.Unmarshal([]byte(value), &urls); err == nil {
		*s = ICEServers{{URLs: urls}}
		return nil
	}

	return json.Unmarshal([]byte(value), (*[]ICEServerConfig)(s))
}

func (s *ICEServers) UnmarshalTOML(data any) error {
	d, ok := data.([]any)
	if !ok {
		return fmt.Errorf("invalid type %T", data)
	}

	var iceServers []ICEServerConfig
	for _, obj := range d {
		var server ICEServerConfig

		switch t := obj.(type) {
		case string:
			server.URLs = append(server.URLs, t)
		case map[string]any:
			urls, _ := t["urls"].([]any)
			for _, u := range urls {
				uVal, _ := u.(string)
				server.URLs = append(server.URLs, uVal)
			}
			server.Username, _ = t["username"].(string)
			server.Credential, _ = t["credential"].(string)
		default:
			return fmt.Errorf("unknown type %T", t)
		}

		iceServers = append(iceServers, server)
	}

	*s = iceServers

	return nil
}
