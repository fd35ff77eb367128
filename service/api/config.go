// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package api

import (
	"crypto/tls"
	"fmt"
	"net/url"
)

type TLSConfig struct {
	Enable   bool   `toml:"enable"`
	CertFile string `toml:"cert_file"`
	CertKey  string `toml:"cert_key"`
}

func (c TLSConfig) IsValid() error {
	if c.Enable {
		if c.CertFile == "" {
			return fmt.Errorf("invalid CertFile value: should not be empty")
		}

		if c.CertKey == "" {
			return fmt.Errorf("invalid CertKey value: should not be empty")
		}

		if _, err := tls.LoadX509KeyPair(c.CertFile, c.CertKey); err != nil {
			return fmt.Errorf("failed to load cert files: %w", err)
		}
	}
	return nil
}

type Config struct {
	ListenAddress string    `toml:"listen_address"`
	TLS           TLSConfig `toml:"tls"`
	// AllowedOrigins is an optional list of origins allowed to make cross
	// origin requests, including websocket upgrades. If empty only same
	// origin requests are served.
	AllowedOrigins []string `toml:"allowed_origins" split_words:"true"`
}

func (c Config) IsValid() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("invalid ListenAddress value: should not be empty")
	}
	if err := c.TLS.IsValid(); err != nil {
		return fmt.Errorf("invalid TLS config: %w", err)
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid AllowedOrigins value: %q is not a valid origin", origin)
		}
	}
	return nil
}

func (c *Config) SetDefaults() {
	c.ListenAddress = ":8045"
}
