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
	"github.com/syndtr/gocapability/capability"
)

// capsCmd implements subcommands.Command for the "caps" command: it reports
// the process's effective Linux capabilities, a diagnostic explaining why
// modify_thread needs none of them (it is signal/same-process only) while
// enumerate_modules of another pid's maps does.
type capsCmd struct{}

// Name implements subcommands.Command.Name.
func (*capsCmd) Name() string { return "caps" }

// Synopsis implements subcommands.Command.Synopsis.
func (*capsCmd) Synopsis() string {
	return "report the process's effective Linux capabilities"
}

// Usage implements subcommands.Command.Usage.
func (*capsCmd) Usage() string { return "caps\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (*capsCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*capsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	caps, err := capability.NewPid2(0)
	if err != nil {
		fmt.Printf("gumctl: loading capabilities: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := caps.Load(); err != nil {
		fmt.Printf("gumctl: loading capabilities: %v\n", err)
		return subcommands.ExitFailure
	}

	printed := false
	for _, c := range capability.List() {
		if caps.Get(capability.EFFECTIVE, c) {
			fmt.Println(c.String())
			printed = true
		}
	}
	if !printed {
		fmt.Println("(no effective capabilities)")
	}
	return subcommands.ExitSuccess
}
