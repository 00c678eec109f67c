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
	"strconv"

	"github.com/google/subcommands"

	"github.com/tyilo/gumcore/pkg/memrange"
	"github.com/tyilo/gumcore/pkg/pageprot"
)

// addr2modCmd implements subcommands.Command for the "addr2mod" command: it
// answers "which executable range, if any, contains this address", using the
// btree-backed reverse index pkg/memrange builds over an enumeration
// snapshot.
type addr2modCmd struct{}

// Name implements subcommands.Command.Name.
func (*addr2modCmd) Name() string { return "addr2mod" }

// Synopsis implements subcommands.Command.Synopsis.
func (*addr2modCmd) Synopsis() string {
	return "find the executable memory range containing an address"
}

// Usage implements subcommands.Command.Usage.
func (*addr2modCmd) Usage() string { return "addr2mod <hex address>\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (*addr2modCmd) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*addr2modCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	addr, err := strconv.ParseUint(trimHexPrefix(f.Arg(0)), 16, 64)
	if err != nil {
		fmt.Printf("gumctl: bad address %q: %v\n", f.Arg(0), err)
		return subcommands.ExitUsageError
	}

	idx, err := memrange.NewIndex(pageprot.Execute)
	if err != nil {
		fmt.Printf("gumctl: building range index: %v\n", err)
		return subcommands.ExitFailure
	}

	r, ok := idx.RangeContaining(uintptr(addr))
	if !ok {
		fmt.Printf("%#x: no executable range contains this address\n", addr)
		return subcommands.ExitFailure
	}
	fmt.Printf("%#x is in %#016x-%#016x (%s)\n", addr, r.MemoryRange.Base, r.MemoryRange.End(), r.Protection)
	return subcommands.ExitSuccess
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
