// Copyright 2018 The gVisor Authors.
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

package main

import (
	"github.com/tyilo/gumcore/internal/ratelog"
	"github.com/tyilo/gumcore/pkg/config"
	"github.com/tyilo/gumcore/pkg/procfs"
	"github.com/tyilo/gumcore/pkg/threadctx"
)

// applyConfig pushes cfg's tunables into the packages that read them from
// process-global state, before any subcommand runs.
func applyConfig(cfg config.Config) {
	if cfg.ProcRoot != "" && cfg.ProcRoot != "/proc" {
		procfs.SetRoot(cfg.ProcRoot)
	}
	threadctx.SetSignalOffset(cfg.RendezvousSignalOffset)
	ratelog.SetInterval(cfg.ThrottleInterval())
}
