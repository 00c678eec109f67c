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

// parseProtection decodes a "rwx"-style string (any subset, any order) into
// a gum.Protection bitset.
func parseProtection(s string) gum.Protection {
	var p gum.Protection
	for _, c := range s {
		switch c {
		case 'r':
			p |= gum.Read
		case 'w':
			p |= gum.Write
		case 'x':
			p |= gum.Execute
		}
	}
	return p
}

// rangesCmd implements subcommands.Command for the "ranges" command.
type rangesCmd struct {
	prot   string
	pid    int
	module string
}

// Name implements subcommands.Command.Name.
func (*rangesCmd) Name() string { return "ranges" }

// Synopsis implements subcommands.Command.Synopsis.
func (*rangesCmd) Synopsis() string {
	return "enumerate memory ranges satisfying a requested page protection"
}

// Usage implements subcommands.Command.Usage.
func (*rangesCmd) Usage() string {
	return "ranges [-prot=rwx] [-pid=N] [-module=name]\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *rangesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.prot, "prot", "", "required subset of r/w/x the emitted ranges must satisfy")
	f.IntVar(&r.pid, "pid", 0, "enumerate another process's ranges instead of this one (ignored with -module)")
	f.StringVar(&r.module, "module", "", "restrict enumeration to the ranges of a single loaded module")
}

// Execute implements subcommands.Command.Execute.
func (r *rangesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	requested := parseProtection(r.prot)

	visit := func(mr gum.MemoryRange, prot gum.Protection) bool {
		fmt.Printf("%#016x-%#016x %s\n", mr.Base, mr.Base+mr.Size, prot)
		return true
	}

	var err error
	switch {
	case r.module != "":
		err = gum.EnumerateModuleRanges(r.module, requested, visit)
	case r.pid != 0:
		err = gum.EnumerateRangesOf(r.pid, requested, visit)
	default:
		err = gum.EnumerateRanges(requested, visit)
	}
	if err != nil {
		fmt.Printf("gumctl: enumerate_ranges: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
