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

// threadsCmd implements subcommands.Command for the "threads" command.
type threadsCmd struct{}

// Name implements subcommands.Command.Name.
func (*threadsCmd) Name() string { return "threads" }

// Synopsis implements subcommands.Command.Synopsis.
func (*threadsCmd) Synopsis() string {
	return "enumerate every thread of this process with its state and register snapshot"
}

// Usage implements subcommands.Command.Usage.
func (*threadsCmd) Usage() string { return "threads\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (*threadsCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*threadsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	fmt.Printf("current thread id: %d\n", gum.GetCurrentThreadID())

	err := gum.EnumerateThreads(func(d gum.ThreadDetails) bool {
		fmt.Printf("tid=%-8d state=%-15s pc=%#016x\n", d.ID, d.State, d.Context.InstructionPointer())
		return true
	})
	if err != nil {
		fmt.Printf("gumctl: enumerate_threads: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
