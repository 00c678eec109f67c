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

// exportsCmd implements subcommands.Command for the "exports" command.
type exportsCmd struct {
	symbol string
}

// Name implements subcommands.Command.Name.
func (*exportsCmd) Name() string { return "exports" }

// Synopsis implements subcommands.Command.Synopsis.
func (*exportsCmd) Synopsis() string {
	return "resolve exported function symbols from a loaded module's dynamic symbol table"
}

// Usage implements subcommands.Command.Usage.
func (*exportsCmd) Usage() string {
	return "exports [-symbol=name] <module basename>\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *exportsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.symbol, "symbol", "", "look up a single symbol by name instead of listing every export")
}

// Execute implements subcommands.Command.Execute.
func (e *exportsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	module := f.Arg(0)

	if e.symbol != "" {
		addr, err := gum.FindModuleExportByName(module, e.symbol)
		if err != nil {
			fmt.Printf("gumctl: find_module_export_by_name: %v\n", err)
			return subcommands.ExitFailure
		}
		if addr == 0 {
			fmt.Printf("%s!%s: not found\n", module, e.symbol)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s!%s = %#016x\n", module, e.symbol, addr)
		return subcommands.ExitSuccess
	}

	err := gum.EnumerateModuleExports(module, func(name string, addr uintptr) bool {
		fmt.Printf("%#016x  %s\n", addr, name)
		return true
	})
	if err != nil {
		fmt.Printf("gumctl: enumerate_module_exports: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
