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

// Binary gumctl exercises the public operations of pkg/gum against the
// calling process: enumerating threads, modules, and memory ranges, hijacking
// threads through the cross-thread rendezvous, and resolving ELF exports.
// FindModuleBaseAddress has no subcommand of its own.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/tyilo/gumcore/pkg/config"
)

var configPath = flag.String("config", "", "path to a TOML config file; defaults baked in when omitted")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(threadsCmd), "")
	subcommands.Register(new(modifyThreadCmd), "")
	subcommands.Register(new(modulesCmd), "")
	subcommands.Register(new(rangesCmd), "")
	subcommands.Register(new(exportsCmd), "")
	subcommands.Register(new(addr2modCmd), "")
	subcommands.Register(new(capsCmd), "")
	subcommands.Register(new(stressCmd), "")

	flag.Parse()
	installDebugSigHandler()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			os.Stderr.WriteString("gumctl: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}
	applyConfig(cfg)

	os.Exit(int(subcommands.Execute(context.Background(), cfg)))
}
