// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package rtc

import (
	"fmt"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
	"github.com/pion/logging"
)

// loggerFactory routes pion's internal logging to mlog. Debug output is
// demoted to trace since pion is very verbose at that level.
type loggerFactory struct {
	log mlog.LoggerIFace
}

func (f loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{
		log:   f.log,
		scope: scope,
	}
}

type pionLogger struct {
	log   mlog.LoggerIFace
	scope string
}

func (log *pionLogger) fields() []mlog.Field {
	return []mlog.Field{mlog.String("scope", "pion/"+log.scope)}
}

func (log *pionLogger) Trace(msg string) {
	log.log.Trace(msg, log.fields()...)
}

func (log *pionLogger) Tracef(format string, args ...any) {
	log.log.Trace(fmt.Sprintf(format, args...), log.fields()...)
}

func (log *pionLogger) Debug(msg string) {
	log.log.Trace(msg, log.fields()...)
}

func (log *pionLogger) Debugf(format string, args ...any) {
	log.log.Trace(fmt.Sprintf(format, args...), log.fields()...)
}

func (log *pionLogger) Info(msg string) {
	log.log.Info(msg, log.fields()...)
}

func (log *pionLogger) Infof(format string, args ...any) {
	log.log.Info(fmt.Sprintf(format, args...), log.fields()...)
}

func (log *pionLogger) Warn(msg string) {
	log.log.Warn(msg, log.fields()...)
}

func (log *pionLogger) Warnf(format string, args ...any) {
	log.log.Warn(fmt.Sprintf(format, args...), log.fields()...)
}

func (log *pionLogger) Error(msg string) {
	log.log.Error(msg, log.fields()...)
}

func (log *pionLogger) Errorf(format string, args ...any) {
	log.log.Error(fmt.Sprintf(format, args...), log.fields()...)
}
