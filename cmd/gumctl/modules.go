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
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/tyilo/gumcore/pkg/gum"
)

// modulesCmd implements subcommands.Command for the "modules" command.
type modulesCmd struct{}

// Name implements subcommands.Command.Name.
func (*modulesCmd) Name() string { return "modules" }

// Synopsis implements subcommands.Command.Synopsis.
func (*modulesCmd) Synopsis() string {
	return "enumerate every shared object mapped into this process"
}

// Usage implements subcommands.Command.Usage.
func (*modulesCmd) Usage() string { return "modules\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (*modulesCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*modulesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	err := gum.EnumerateModules(func(name string, base uintptr, path string) bool {
		fmt.Printf("%#016x  %-24s %s\n", base, name, path)
		return true
	})
	if err != nil {
		fmt.Printf("gumctl: enumerate_modules: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
