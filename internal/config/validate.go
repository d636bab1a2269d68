// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package config

import (
	"fmt"

	"github.com/tomtom215/levelstate/internal/validation"
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks struct tags first, then the rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		f := verr.Fields[0]
		return &ConfigError{Field: f.Field, Message: f.Message}
	}

	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return c.validateNATS()
}

func (c *Config) validateStore() error {
	if c.Store.Path == "" && !c.Store.InMemory {
		return &ConfigError{Field: "store.path", Message: "required unless store.in_memory is set"}
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Backend {
	case "file":
		if c.Archive.Dir == "" {
			return &ConfigError{Field: "archive.dir", Message: "required for the file backend"}
		}
	case "objectstore":
		if c.Archive.Bucket == "" {
			return &ConfigError{Field: "archive.bucket", Message: "required for the objectstore backend"}
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if c.NATS.EmbeddedServer {
		if c.NATS.StoreDir == "" {
			return &ConfigError{Field: "nats.store_dir", Message: "required for the embedded server"}
		}
		return nil
	}
	if c.NATS.URL == "" {
		return &ConfigError{Field: "nats.url", Message: "required without the embedded server"}
	}
	return nil
}

// IsStreamMode reports whether level changes travel over the change topic.
func (c *Config) IsStreamMode() bool {
	return c.Changes.Mode == "stream"
}
