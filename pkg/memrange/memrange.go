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

// Package memrange enumerates the modules and memory ranges of a process
// from its /proc/<pid>/maps, and indexes the results for reverse lookup by
// address.
package memrange

import (
	"os"

	"github.com/mohae/deepcopy"

	"github.com/tyilo/gumcore/pkg/pageprot"
	"github.com/tyilo/gumcore/pkg/procfs"
)

// elfMagic is the four bytes every ELF file starts with.
var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// Module is one shared object mapped into a process's address space: its
// basename, the virtual address its mapping starts at, and its full disk
// path.
type Module struct {
	Name string
	Base uintptr
	Path string
}

// Range is one contiguous mapping and its current page protection.
type Range struct {
	MemoryRange MemoryRange
	Protection  pageprot.Protection
}

// MemoryRange is a base address and byte size.
type MemoryRange struct {
	Base uintptr
	Size uintptr
}

// End returns the exclusive end address of r.
func (r MemoryRange) End() uintptr { return r.Base + r.Size }

// ModuleVisitor receives one Module per call, in maps order, and reports
// whether enumeration should continue.
type ModuleVisitor func(Module) bool

// RangeVisitor receives one Range per call, in maps order.
type RangeVisitor func(Range) bool

// hasELFMagicAt reads the first 4 mapped bytes at addr through the process's
// mem pseudo-file and compares them against the ELF magic. The check is
// against memory, not the backing file on disk: a shared object's data
// segments repeat its path in maps but do not carry the magic at their own
// mapped start, so this is what distinguishes the primary text mapping. Any
// read failure (unmapped, PROT_NONE, vanished) is treated as "not ELF".
func hasELFMagicAt(mem *os.File, addr uintptr) bool {
	var buf [4]byte
	if _, err := mem.ReadAt(buf[:], int64(addr)); err != nil {
		return false
	}
	return buf == elfMagic
}

// EnumerateModules visits every distinct shared-object mapping of the
// calling process's address space: the first mapped line of each object's
// path, identified by that line both carrying a file-backed, non-pseudo
// path distinct from the immediately preceding emission and having the ELF
// magic at its mapped start. The first-bytes check is what makes "no two
// consecutive emissions share a path" sound: a shared object's later
// (data) segments repeat its path but don't carry the magic at their own
// start.
func EnumerateModules(visit ModuleVisitor) error {
	return enumerateModules(0, visit)
}

// EnumerateModulesOf is EnumerateModules against another process's maps.
func EnumerateModulesOf(pid int, visit ModuleVisitor) error {
	return enumerateModules(pid, visit)
}

func enumerateModules(pid int, visit ModuleVisitor) error {
	f, err := procfs.OpenMaps(pid)
	if err != nil {
		return err
	}
	defer f.Close()

	mem, err := procfs.OpenMem(pid)
	if err != nil {
		return err
	}
	defer mem.Close()

	// lastPath is only advanced on emission, so a same-path line is
	// suppressed even when pathless or pseudo lines intervene; an
	// interleaved mapping of a different file resets it, and the magic
	// check below keeps that from re-admitting a data segment.
	lastPath := ""
	return procfs.ScanMapsModules(f, func(line procfs.MapsModuleLine) bool {
		if !line.HasPath || procfs.IsPseudoPath(line.Path) {
			return true
		}
		if line.Path == lastPath {
			return true
		}
		if !hasELFMagicAt(mem, line.Start) {
			return true
		}
		lastPath = line.Path

		m := Module{Name: procfs.Basename(line.Path), Base: line.Start, Path: line.Path}
		return visit(deepcopy.Copy(m).(Module))
	})
}

// EnumerateRanges visits every mapping of the calling process whose
// protection satisfies requested.
func EnumerateRanges(requested pageprot.Protection, visit RangeVisitor) error {
	return enumerateRanges(0, requested, visit)
}

// EnumerateRangesOf is EnumerateRanges against another process.
func EnumerateRangesOf(pid int, requested pageprot.Protection, visit RangeVisitor) error {
	return enumerateRanges(pid, requested, visit)
}

func enumerateRanges(pid int, requested pageprot.Protection, visit RangeVisitor) error {
	f, err := procfs.OpenMaps(pid)
	if err != nil {
		return err
	}
	defer f.Close()

	return procfs.ScanMapsRanges(f, func(line procfs.MapsRangeLine) bool {
		prot := pageprot.FromPermsString(line.Perms)
		if !prot.Satisfies(requested) {
			return true
		}
		r := Range{
			MemoryRange: MemoryRange{Base: line.Start, Size: line.End - line.Start},
			Protection:  prot,
		}
		return visit(deepcopy.Copy(r).(Range))
	})
}

// EnumerateModuleRanges visits every mapping of the calling process whose
// basename equals name and whose protection satisfies requested.
func EnumerateModuleRanges(name string, requested pageprot.Protection, visit RangeVisitor) error {
	f, err := procfs.OpenMaps(0)
	if err != nil {
		return err
	}
	defer f.Close()

	return procfs.ScanMapsModuleRanges(f, func(line procfs.MapsModuleRangeLine) bool {
		if !line.HasPath || procfs.Basename(line.Path) != name {
			return true
		}
		prot := pageprot.FromPermsString(line.Perms)
		if !prot.Satisfies(requested) {
			return true
		}
		r := Range{
			MemoryRange: MemoryRange{Base: line.Start, Size: line.End - line.Start},
			Protection:  prot,
		}
		return visit(deepcopy.Copy(r).(Range))
	})
}

// FindModuleBaseAddress returns the load address of the named module in the
// calling process, or 0 if it is not mapped.
func FindModuleBaseAddress(name string) (uintptr, error) {
	var base uintptr
	err := EnumerateModules(func(m Module) bool {
		if m.Name == name {
			base = m.Base
			return false
		}
		return true
	})
	return base, err
}

// FindModulePath returns the disk path of the named module in the calling
// process, or "" if it is not mapped. elfexport does not call it: its own
// lookup returns the base address and the path together.
func FindModulePath(name string) (string, error) {
	var path string
	err := EnumerateModules(func(m Module) bool {
		if m.Name == name {
			path = m.Path
			return false
		}
		return true
	})
	return path, err
}
