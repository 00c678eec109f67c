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

// Package gum is the external interface of the introspection core: it
// assembles pkg/procfs, pkg/memrange, pkg/cpucontext, pkg/threadctx, and
// pkg/elfexport into the small set of pull-based enumeration and thread
// manipulation operations a caller needs, without exposing any of those
// packages' internal types directly.
package gum

import (
	"github.com/tyilo/gumcore/pkg/cpucontext"
	"github.com/tyilo/gumcore/pkg/elfexport"
	"github.com/tyilo/gumcore/pkg/memrange"
	"github.com/tyilo/gumcore/pkg/pageprot"
	"github.com/tyilo/gumcore/pkg/threadctx"
)

// ThreadID is an opaque thread identifier: the kernel thread id.
type ThreadID = threadctx.ID

// ThreadState is the coarse scheduling state of a thread.
type ThreadState = threadctx.State

// ThreadDetails is a single enumerated thread's id, state, and register
// snapshot.
type ThreadDetails = threadctx.Details

// CPUContext is an architecture-tagged register snapshot.
type CPUContext = cpucontext.Context

// Protection is a bitset over {Read, Write, Execute}.
type Protection = pageprot.Protection

// MemoryRange is a base address and byte size.
type MemoryRange = memrange.MemoryRange

// Export is a resolved dynamic symbol: its name and runtime address.
type Export = elfexport.Export

const (
	Read     = pageprot.Read
	Write    = pageprot.Write
	Execute  = pageprot.Execute
	NoAccess = pageprot.NoAccess
)

// GetCurrentThreadID returns the calling thread's kernel thread id.
func GetCurrentThreadID() ThreadID {
	return threadctx.CurrentID()
}

// EnumerateThreads visits every thread of the calling process, each with a
// live register snapshot already populated.
func EnumerateThreads(visit func(ThreadDetails) bool) error {
	return threadctx.EnumerateThreads(visit)
}

// ModifyThread atomically presents targetID's CPU registers to visit,
// applying any mutation visit makes before the target resumes. It reports
// whether the rendezvous completed.
func ModifyThread(targetID ThreadID, visit func(ctx *CPUContext)) bool {
	return threadctx.ModifyThread(targetID, visit)
}

// EnumerateModules visits every distinct shared object mapped into the
// calling process, receiving its basename, load base, and disk path.
func EnumerateModules(visit func(name string, base uintptr, path string) bool) error {
	return memrange.EnumerateModules(func(m memrange.Module) bool {
		return visit(m.Name, m.Base, m.Path)
	})
}

// EnumerateRanges visits every mapping of the calling process whose
// protection satisfies requested.
func EnumerateRanges(requested Protection, visit func(MemoryRange, Protection) bool) error {
	return memrange.EnumerateRanges(requested, func(r memrange.Range) bool {
		return visit(r.MemoryRange, r.Protection)
	})
}

// EnumerateRangesOf is EnumerateRanges against another process.
func EnumerateRangesOf(pid int, requested Protection, visit func(MemoryRange, Protection) bool) error {
	return memrange.EnumerateRangesOf(pid, requested, func(r memrange.Range) bool {
		return visit(r.MemoryRange, r.Protection)
	})
}

// EnumerateModuleRanges visits every mapping of the calling process
// belonging to the named module whose protection satisfies requested.
func EnumerateModuleRanges(name string, requested Protection, visit func(MemoryRange, Protection) bool) error {
	return memrange.EnumerateModuleRanges(name, requested, func(r memrange.Range) bool {
		return visit(r.MemoryRange, r.Protection)
	})
}

// FindModuleBaseAddress returns the load address of the named module in the
// calling process, or 0 if it is not mapped.
func FindModuleBaseAddress(name string) (uintptr, error) {
	return memrange.FindModuleBaseAddress(name)
}

// EnumerateModuleExports visits every global or weak function symbol
// exported by the named module's dynamic symbol table, rebased to its
// runtime load address.
func EnumerateModuleExports(name string, visit func(symbolName string, address uintptr) bool) error {
	return elfexport.EnumerateExports(name, func(e elfexport.Export) bool {
		return visit(e.Name, e.Address)
	})
}

// FindModuleExportByName returns the runtime address of symbolName in
// moduleName, or 0 if no such export exists.
func FindModuleExportByName(moduleName, symbolName string) (uintptr, error) {
	return elfexport.FindExportByName(moduleName, symbolName)
}
