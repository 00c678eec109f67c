// Copyright 2020 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the TOML-configured tunables gumctl runs with.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultSignalOffset   = 7
	defaultProcRoot       = "/proc"
	defaultThrottleMillis = 250
)

// Config holds the tunables gumctl loads from a TOML file before invoking
// pkg/gum. Its zero value is not valid; use Default to get a usable
// starting point.
type Config struct {
	// RendezvousSignalOffset selects the real-time signal used for
	// cross-thread rendezvous as SIGRTMIN+RendezvousSignalOffset.
	RendezvousSignalOffset int `toml:"rendezvous_signal_offset"`
	// ProcRoot overrides the /proc mountpoint the introspection core reads
	// under. Only ever needed against a synthetic /proc for testing.
	ProcRoot string `toml:"proc_root"`
	// BusyWaitLogThrottleMillis bounds how often the cross-thread rendezvous
	// busy-waits may log a "still waiting" diagnostic line.
	BusyWaitLogThrottleMillis int `toml:"busy_wait_log_throttle_millis"`
}

// Default returns the tunables gumctl uses when no config file is given.
func Default() Config {
	return Config{
		RendezvousSignalOffset:    defaultSignalOffset,
		ProcRoot:                  defaultProcRoot,
		BusyWaitLogThrottleMillis: defaultThrottleMillis,
	}
}

// Load reads and decodes a TOML config file, filling in any field the file
// omits from Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// ThrottleInterval converts BusyWaitLogThrottleMillis to a time.Duration.
func (c Config) ThrottleInterval() time.Duration {
	return time.Duration(c.BusyWaitLogThrottleMillis) * time.Millisecond
}
