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

package memrange

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tyilo/gumcore/pkg/pageprot"
	"github.com/tyilo/gumcore/pkg/procfs"
)

// writeFakeProc builds <dir>/self/maps: two shared objects with their data
// segments, interleaved with pseudo and anonymous mappings. libfoo's second
// data segment at 0x600000 sits after libbar, so path comparison alone would
// re-admit it as a module; only the magic check keeps it out.
func writeFakeProc(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "self"), 0o755); err != nil {
		t.Fatal(err)
	}
	maps := `00400000-00401000 r-xp 00000000 08:02 1 /lib/libfoo.so
00401000-00402000 r--p 00001000 08:02 1 /lib/libfoo.so
00500000-00501000 r-xp 00000000 08:02 2 /lib/libbar.so
00600000-00601000 rw-p 00002000 08:02 1 /lib/libfoo.so
00601000-00602000 rw-p 00000000 00:00 0           [heap]
70000000-70021000 rw-p 00000000 00:00 0
`
	if err := os.WriteFile(filepath.Join(dir, "self", "maps"), []byte(maps), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeFakeMem builds a sparse <dir>/self/mem carrying the ELF magic at each
// given address, standing in for the kernel's virtual-address-indexed mem
// pseudo-file. Holes read as zeros, i.e. "no magic here".
func writeFakeMem(t *testing.T, dir string, addrs ...uintptr) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "self", "mem"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, a := range addrs {
		if _, err := f.WriteAt([]byte{0x7f, 'E', 'L', 'F'}, int64(a)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnumerateModules(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	writeFakeMem(t, dir, 0x00400000, 0x00500000)
	defer procfs.SetRoot(dir)()

	var got []Module
	if err := EnumerateModules(func(m Module) bool {
		got = append(got, m)
		return true
	}); err != nil {
		t.Fatalf("EnumerateModules: %v", err)
	}

	// libfoo's consecutive data segment is suppressed by path; its later
	// rw segment at 0x600000 has a fresh path relative to the previous
	// emission (libbar) but no magic at its mapped start, so only the two
	// primary text mappings come out.
	if len(got) != 2 {
		t.Fatalf("got %d modules, want 2: %+v", len(got), got)
	}
	if got[0].Base != 0x00400000 || got[0].Name != "libfoo.so" {
		t.Errorf("first module = %+v, want libfoo.so at %#x", got[0], 0x00400000)
	}
	if got[1].Base != 0x00500000 || got[1].Name != "libbar.so" {
		t.Errorf("second module = %+v, want libbar.so at %#x", got[1], 0x00500000)
	}
	if got[0].Path != "/lib/libfoo.so" {
		t.Errorf("first module path = %q, want %q", got[0].Path, "/lib/libfoo.so")
	}
}

func TestEnumerateModulesSkipsNonELF(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	// mem exists but carries no magic anywhere: nothing qualifies.
	writeFakeMem(t, dir)
	defer procfs.SetRoot(dir)()

	var got []Module
	if err := EnumerateModules(func(m Module) bool {
		got = append(got, m)
		return true
	}); err != nil {
		t.Fatalf("EnumerateModules: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d modules with no ELF magic mapped, want 0", len(got))
	}
}

func TestFindModuleBaseAddress(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	writeFakeMem(t, dir, 0x00400000, 0x00500000)
	defer procfs.SetRoot(dir)()

	base, err := FindModuleBaseAddress("libbar.so")
	if err != nil {
		t.Fatalf("FindModuleBaseAddress: %v", err)
	}
	if base != 0x00500000 {
		t.Errorf("base = %#x, want %#x", base, 0x00500000)
	}

	base, err = FindModuleBaseAddress("nope.so")
	if err != nil {
		t.Fatalf("FindModuleBaseAddress: %v", err)
	}
	if base != 0 {
		t.Errorf("base = %#x for an unmapped module, want 0", base)
	}
}

func TestEnumerateRangesFiltersByProtection(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	defer procfs.SetRoot(dir)()

	var got []Range
	if err := EnumerateRanges(pageprot.Read|pageprot.Execute, func(r Range) bool {
		got = append(got, r)
		return true
	}); err != nil {
		t.Fatalf("EnumerateRanges: %v", err)
	}
	for _, r := range got {
		if !r.Protection.Satisfies(pageprot.Read | pageprot.Execute) {
			t.Errorf("range %+v does not satisfy Read|Execute", r)
		}
	}
	if len(got) != 2 {
		t.Fatalf("got %d r-x ranges, want 2", len(got))
	}
}

func TestEnumerateModuleRanges(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	defer procfs.SetRoot(dir)()

	var got []Range
	if err := EnumerateModuleRanges("libfoo.so", pageprot.NoAccess, func(r Range) bool {
		got = append(got, r)
		return true
	}); err != nil {
		t.Fatalf("EnumerateModuleRanges: %v", err)
	}
	// All three libfoo mappings, regardless of protection, in maps order.
	if len(got) != 3 {
		t.Fatalf("got %d libfoo.so ranges, want 3: %+v", len(got), got)
	}
	if got[0].MemoryRange.Base != 0x00400000 || got[2].MemoryRange.Base != 0x00600000 {
		t.Errorf("unexpected range order: %+v", got)
	}
}

func TestIndexRangeContaining(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	defer procfs.SetRoot(dir)()

	idx, err := NewIndex(pageprot.NoAccess)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if idx.Len() != 6 {
		t.Fatalf("indexed %d ranges, want 6", idx.Len())
	}

	r, ok := idx.RangeContaining(0x00400500)
	if !ok {
		t.Fatal("expected a range containing 0x00400500")
	}
	if r.MemoryRange.Base != 0x00400000 {
		t.Errorf("containing range base = %#x, want %#x", r.MemoryRange.Base, 0x00400000)
	}

	if _, ok := idx.RangeContaining(0xdeadbeef00); ok {
		t.Error("expected no range to contain an address outside every mapping")
	}
}
