// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package logger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const targetQueueSize = 1000

func getLevels(level string) []mlog.Level {
	var levels []mlog.Level
	for _, l := range mlog.StdAll {
		levels = append(levels, l)
		if l.Name == strings.ToLower(level) {
			break
		}
	}
	return levels
}

func formatFor(jsonFormat, color bool) (string, json.RawMessage) {
	if jsonFormat {
		return "json", json.RawMessage(`{"enable_caller": true}`)
	}
	opts := fmt.Sprintf(`{"delim": " ", "min_level_len": 5, "min_msg_len": 45, "enable_color": %t, "enable_caller": true}`, color)
	return "plain", json.RawMessage(opts)
}

// New returns a newly created and initialized logger with the given cfg.
func New(config Config) (*mlog.Logger, error) {
	if err := config.IsValid(); err != nil {
		return nil, err
	}

	logger, err := mlog.NewLogger()
	if err != nil {
		return nil, err
	}

	cfg := mlog.LoggerConfiguration{}
	if config.EnableConsole {
		format, formatOpts := formatFor(config.ConsoleJSON, config.EnableColor)
		cfg["_defConsole"] = mlog.TargetCfg{
			Type:          "console",
			Levels:        getLevels(config.ConsoleLevel),
			Options:       json.RawMessage(`{"out": "stdout"}`),
			Format:        format,
			FormatOptions: formatOpts,
			MaxQueueSize:  targetQueueSize,
		}
	}

	if config.EnableFile {
		format, formatOpts := formatFor(config.FileJSON, false)
		opts, err := json.Marshal(map[string]any{
			"filename":    config.FileLocation,
			"max_size":    100,
			"max_age":     0,
			"max_backups": 0,
			"compress":    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode file target options: %w", err)
		}
		cfg["_defFile"] = mlog.TargetCfg{
			Type:          "file",
			Levels:        getLevels(config.FileLevel),
			Options:       opts,
			Format:        format,
			FormatOptions: formatOpts,
			MaxQueueSize:  targetQueueSize,
		}
	}

	if err := logger.ConfigureTargets(cfg, nil); err != nil {
		return nil, err
	}

	return logger, nil
}
