// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattermost/rtcstats/logger"
	"github.com/mattermost/rtcstats/service"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

func main() {
	var configPath string
	var envPath string
	flag.StringVar(&configPath, "config", "config/config.toml", "Path to the configuration file for the rtcstats service.")
	flag.StringVar(&envPath, "env", "", "Optional path to a dotenv file with configuration overrides.")
	flag.Parse()

	cfg, err := loadConfig(configPath, envPath)
	if err != nil {
		log.Fatalf("rtcstats: failed to load config: %s", err.Error())
	}

	if err := cfg.IsValid(); err != nil {
		log.Fatalf("rtcstats: failed to validate config: %s", err.Error())
	}

	logger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("rtcstats: failed to init logger: %s", err.Error())
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("rtcstats: failed to shutdown logger: %s", err.Error())
		}
	}()

	service, err := service.New(cfg, logger)
	if err != nil {
		logger.Error("rtcstats: failed to create service", mlog.Err(err))
		return
	}

	if err := service.Start(); err != nil {
		logger.Error("rtcstats: failed to start service", mlog.Err(err))
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if err := service.Stop(); err != nil {
		logger.Error("rtcstats: failed to stop service", mlog.Err(err))
	}
}
