// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package chart

import (
	"fmt"
	"sync"
	"time"
)

// UpdateModeNone asks renderers to redraw without animation.
const UpdateModeNone = "none"

type Point struct {
	X int64   `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Update is emitted to the renderer on every push.
type Update struct {
	ChartID string `json:"chartID" msgpack:"chartID"`
	Point   Point  `json:"point" msgpack:"point"`
	Mode    string `json:"mode" msgpack:"mode"`
}

// Renderer draws chart updates. Render is called synchronously from PushData
// and should not block.
type Renderer interface {
	Render(u Update)
}

type RendererFunc func(u Update)

func (f RendererFunc) Render(u Update) {
	f(u)
}

// Snapshot is the full state of a chart at a given time.
type Snapshot struct {
	Config Config  `json:"config" msgpack:"config"`
	Points []Point `json:"points" msgpack:"points"`
}

// Chart is a single series scrolling line chart.
type Chart struct {
	cfg       Config
	renderer  Renderer
	now       func() time.Time
	points    []Point
	destroyed bool
	mut       sync.RWMutex
}

type Option func(c *Chart) error

// WithClock lets the caller override the clock used to trim points that fall
// out of the visible window.
func WithClock(now func() time.Time) Option {
	return func(c *Chart) error {
		if now == nil {
			return fmt.Errorf("clock should not be nil")
		}
		c.now = now
		return nil
	}
}

func New(cfg Config, renderer Renderer, opts ...Option) (*Chart, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	c := &Chart{
		cfg:      cfg,
		renderer: renderer,
		now:      time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return c, nil
}

func (c *Chart) ID() string {
	return c.cfg.ID
}

func (c *Chart) Config() Config {
	return c.cfg
}

// PushData appends a point to the series and redraws. Points are neither
// sorted nor validated.
func (c *Chart) PushData(timestamp int64, value float64) {
	c.mut.Lock()
	if c.destroyed {
		c.mut.Unlock()
		return
	}
	p := Point{X: timestamp, Y: value}
	c.points = append(c.points, p)
	c.trim()
	renderer := c.renderer
	c.mut.Unlock()

	if renderer != nil {
		renderer.Render(Update{
			ChartID: c.cfg.ID,
			Point:   p,
			Mode:    UpdateModeNone,
		})
	}
}

// trim drops the leading points that scrolled out of the window. Needs to be
// called under lock.
func (c *Chart) trim() {
	window := c.cfg.window()
	if window <= 0 {
		return
	}
	cutoff := c.now().UnixMilli() - window
	var i int
	for i < len(c.points) && c.points[i].X < cutoff {
		i++
	}
	if i > 0 {
		c.points = append(c.points[:0], c.points[i:]...)
	}
}

// Data returns a copy of the current series.
func (c *Chart) Data() []Point {
	c.mut.RLock()
	defer c.mut.RUnlock()
	points := make([]Point, len(c.points))
	copy(points, c.points)
	return points
}

func (c *Chart) Snapshot() Snapshot {
	return Snapshot{
		Config: c.cfg,
		Points: c.Data(),
	}
}

// Destroy releases the series. Any later push is dropped.
func (c *Chart) Destroy() {
	c.mut.Lock()
	defer c.mut.Unlock()
	c.destroyed = true
	c.points = nil
	c.renderer = nil
}
