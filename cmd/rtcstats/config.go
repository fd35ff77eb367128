// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package main

import (
	"fmt"

	"github.com/mattermost/rtcstats/service"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "rtcstats"

// loadConfig reads the config file and returns a new service.Config.
// Defaults are applied first so that the file only needs to carry the
// settings it changes. Values are then overridden by any environment
// variable corresponding to a specific setting, optionally loaded from a
// dotenv file.
func loadConfig(path, envPath string) (service.Config, error) {
	var cfg service.Config
	cfg.SetDefaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return cfg, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
