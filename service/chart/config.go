// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package chart

import (
	"fmt"
	"time"
)

const (
	DefaultWidth  = 300
	DefaultHeight = 200

	DefaultDuration = 10 * time.Minute
	DefaultDelay    = 5 * time.Second
	DefaultRefresh  = 5 * time.Second
)

// RealtimeScale configures a scrolling time axis.
type RealtimeScale struct {
	// Duration is the width of the visible time window.
	Duration time.Duration `toml:"duration" json:"duration" msgpack:"duration"`
	// Delay is how far behind the wall clock the axis is drawn.
	Delay time.Duration `toml:"delay" json:"delay" msgpack:"delay"`
	// Refresh is the interval at which the axis scrolls.
	Refresh time.Duration `toml:"refresh" json:"refresh" msgpack:"refresh"`
}

func (s RealtimeScale) IsValid() error {
	if s.Duration <= 0 {
		return fmt.Errorf("invalid Duration value: should be greater than zero")
	}
	if s.Delay < 0 {
		return fmt.Errorf("invalid Delay value: should not be negative")
	}
	if s.Refresh <= 0 {
		return fmt.Errorf("invalid Refresh value: should be greater than zero")
	}
	return nil
}

func (s *RealtimeScale) SetDefaults() {
	s.Duration = DefaultDuration
	s.Delay = DefaultDelay
	s.Refresh = DefaultRefresh
}

type Scale struct {
	Type        ScaleType      `json:"type" msgpack:"type"`
	BeginAtZero bool           `json:"beginAtZero,omitempty" msgpack:"beginAtZero,omitempty"`
	Realtime    *RealtimeScale `json:"realtime,omitempty" msgpack:"realtime,omitempty"`
}

type Config struct {
	// ID identifies the chart to renderers.
	ID          string `json:"id" msgpack:"id"`
	Label       string `json:"label" msgpack:"label"`
	BorderColor string `json:"borderColor" msgpack:"borderColor"`
	Fill        bool   `json:"fill" msgpack:"fill"`
	Width       int    `json:"width" msgpack:"width"`
	Height      int    `json:"height" msgpack:"height"`
	X           Scale  `json:"x" msgpack:"x"`
	Y           Scale  `json:"y" msgpack:"y"`
}

// NewConfig returns the configuration shared by all metric charts: a line
// with no fill over a realtime X axis and a zero based linear Y axis.
func NewConfig(id, label, borderColor string, window RealtimeScale) Config {
	return Config{
		ID:          id,
		Label:       label,
		BorderColor: borderColor,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		X: Scale{
			Type:     ScaleTypeRealtime,
			Realtime: &window,
		},
		Y: Scale{
			Type:        ScaleTypeLinear,
			BeginAtZero: true,
		},
	}
}

func (c Config) IsValid() error {
	if c.ID == "" {
		return fmt.Errorf("invalid ID value: should not be empty")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d: should be greater than zero", c.Width, c.Height)
	}
	for _, s := range []Scale{c.X, c.Y} {
		if !IsRegistered(s.Type) {
			return fmt.Errorf("scale type %q is not registered", s.Type)
		}
	}
	if c.X.Type == ScaleTypeRealtime {
		if c.X.Realtime == nil {
			return fmt.Errorf("invalid X value: realtime scale requires options")
		}
		if err := c.X.Realtime.IsValid(); err != nil {
			return fmt.Errorf("invalid realtime options: %w", err)
		}
	}
	return nil
}

// window is the time span, in milliseconds, of points kept by the chart.
func (c Config) window() int64 {
	if c.X.Realtime == nil {
		return 0
	}
	return (c.X.Realtime.Duration + c.X.Realtime.Delay).Milliseconds()
}
