// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package chart

import (
	"sync"
)

type ScaleType string

const (
	ScaleTypeLinear   ScaleType = "linear"
	ScaleTypeTime     ScaleType = "time"
	ScaleTypeRealtime ScaleType = "realtime"
)

var registerables = []ScaleType{
	ScaleTypeLinear,
	ScaleTypeTime,
	ScaleTypeRealtime,
}

var (
	registry   = map[ScaleType]struct{}{}
	registryMu sync.RWMutex
)

func init() {
	Register(registerables...)
}

// Register makes the given scale types available to every chart in the
// process.
func Register(types ...ScaleType) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, t := range types {
		registry[t] = struct{}{}
	}
}

func IsRegistered(t ScaleType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[t]
	return ok
}
