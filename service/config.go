// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"fmt"

	"github.com/mattermost/rtcstats/logger"
	"github.com/mattermost/rtcstats/service/api"
	"github.com/mattermost/rtcstats/service/chart"
	"github.com/mattermost/rtcstats/service/rtc"
	"github.com/mattermost/rtcstats/service/ws"
)

type APIConfig struct {
	HTTP api.Config `toml:"http"`
}

func (c APIConfig) IsValid() error {
	if err := c.HTTP.IsValid(); err != nil {
		return fmt.Errorf("failed to validate http config: %w", err)
	}

	return nil
}

type Config struct {
	API    APIConfig           `toml:"api"`
	WS     ws.Config           `toml:"ws"`
	RTC    rtc.Config          `toml:"rtc"`
	Charts chart.RealtimeScale `toml:"charts"`
	Logger logger.Config       `toml:"logger"`
}

func (c Config) IsValid() error {
	if err := c.API.IsValid(); err != nil {
		return err
	}

	if err := c.WS.IsValid(); err != nil {
		return fmt.Errorf("failed to validate ws config: %w", err)
	}

	if err := c.RTC.IsValid(); err != nil {
		return fmt.Errorf("failed to validate rtc config: %w", err)
	}

	if err := c.Charts.IsValid(); err != nil {
		return fmt.Errorf("failed to validate charts config: %w", err)
	}

	return c.Logger.IsValid()
}

func (c *Config) SetDefaults() {
	c.API.HTTP.SetDefaults()
	c.WS.SetDefaults()
	c.RTC.SetDefaults()
	c.Charts.SetDefaults()
	c.Logger.SetDefaults()
}
