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

package elfexport

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tyilo/gumcore/pkg/procfs"
)

// fakeELF64 builds a minimal little-endian ELF64 shared object with one
// SHT_DYNSYM section exporting a single global function symbol named
// symName at link-time value symValue.
func fakeELF64(t *testing.T, etype uint16, symName string, symValue uint64) []byte {
	t.Helper()

	const (
		ehdrSize  = 64
		symSize   = 24
		shdrSize  = 64
		dynsymOff = ehdrSize
	)
	strtabBytes := append([]byte{0}, append([]byte(symName), 0)...)
	strtabOff := dynsymOff + 2*symSize
	shoff := (strtabOff + len(strtabBytes) + 7) &^ 7 // 8-byte align

	buf := make([]byte, shoff+3*shdrSize)
	le := binary.LittleEndian

	// e_ident
	buf[0], buf[1], buf[2], buf[3] = 0x7f, 'E', 'L', 'F'
	buf[eiClass] = class64
	buf[eiData] = data2LSB
	le.PutUint16(buf[16:], etype)         // e_type
	le.PutUint64(buf[40:], uint64(shoff)) // e_shoff
	le.PutUint16(buf[58:], shdrSize)      // e_shentsize
	le.PutUint16(buf[60:], 3)             // e_shnum

	// dynsym symbol table: entry 0 is the null symbol, entry 1 is ours.
	symBase := dynsymOff + symSize
	le.PutUint32(buf[symBase:], 1) // st_name (offset into strtab, skipping the leading NUL)
	buf[symBase+4] = (stbGlobal << 4) | sttFunc // st_info
	le.PutUint16(buf[symBase+6:], 1)            // st_shndx (non-zero: defined)
	le.PutUint64(buf[symBase+8:], symValue)     // st_value

	copy(buf[strtabOff:], strtabBytes)

	// section 0: null section, left zeroed.
	// section 1: SHT_DYNSYM.
	sh1 := shoff + shdrSize
	le.PutUint32(buf[sh1+4:], shtDynsym)
	le.PutUint64(buf[sh1+24:], uint64(dynsymOff))
	le.PutUint64(buf[sh1+32:], uint64(2*symSize))
	le.PutUint32(buf[sh1+40:], 2) // sh_link -> section 2 (strtab)
	// section 2: string table.
	sh2 := shoff + 2*shdrSize
	le.PutUint32(buf[sh2+4:], 3) // SHT_STRTAB
	le.PutUint64(buf[sh2+24:], uint64(strtabOff))
	le.PutUint64(buf[sh2+32:], uint64(len(strtabBytes)))

	return buf
}

func writeFakeProcModule(t *testing.T, dir, libPath string, base uintptr) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "self"), 0o755); err != nil {
		t.Fatal(err)
	}
	// The mapping must cover every symbol value used by the fake ELF images
	// in this file (up to offset 0x2000) so that the export-resolution
	// invariant check (address lies within a mapped executable range) holds.
	maps := fmt.Sprintf("%012x-%012x r-xp 00000000 08:02 1 %s\n", base, base+0x3000, libPath)
	if err := os.WriteFile(filepath.Join(dir, "self", "maps"), []byte(maps), 0o644); err != nil {
		t.Fatal(err)
	}
	// Sparse stand-in for the mem pseudo-file: module enumeration confirms
	// the ELF magic at the mapped base before admitting the module.
	mem, err := os.Create(filepath.Join(dir, "self", "mem"))
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()
	if _, err := mem.WriteAt([]byte{0x7f, 'E', 'L', 'F'}, int64(base)); err != nil {
		t.Fatal(err)
	}
}

func TestEnumerateExports(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "libfoo.so")
	if err := os.WriteFile(libPath, fakeELF64(t, etDyn, "my_export", 0x2000), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFakeProcModule(t, dir, libPath, 0x70000000)
	defer procfs.SetRoot(dir)()

	var got []Export
	if err := EnumerateExports("libfoo.so", func(e Export) bool {
		got = append(got, e)
		return true
	}); err != nil {
		t.Fatalf("EnumerateExports: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d exports, want 1: %+v", len(got), got)
	}
	if got[0].Name != "my_export" {
		t.Errorf("name = %q, want %q", got[0].Name, "my_export")
	}
	want := uintptr(0x70000000 + 0x2000)
	if got[0].Address != want {
		t.Errorf("address = %#x, want %#x", got[0].Address, want)
	}
}

func TestFindExportByName(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "libfoo.so")
	if err := os.WriteFile(libPath, fakeELF64(t, etDyn, "my_export", 0x2000), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFakeProcModule(t, dir, libPath, 0x70000000)
	defer procfs.SetRoot(dir)()

	addr, err := FindExportByName("libfoo.so", "my_export")
	if err != nil {
		t.Fatalf("FindExportByName: %v", err)
	}
	if want := uintptr(0x70000000 + 0x2000); addr != want {
		t.Errorf("address = %#x, want %#x", addr, want)
	}

	addr, err = FindExportByName("libfoo.so", "no_such_symbol")
	if err != nil {
		t.Fatalf("FindExportByName: %v", err)
	}
	if addr != 0 {
		t.Errorf("address = %#x for a missing symbol, want 0", addr)
	}
}

func TestEnumerateExportsNonPIEHasNone(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "main")
	if err := os.WriteFile(libPath, fakeELF64(t, etExec, "ignored", 0), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFakeProcModule(t, dir, libPath, 0x00400000)
	defer procfs.SetRoot(dir)()

	var got []Export
	if err := EnumerateExports("main", func(e Export) bool {
		got = append(got, e)
		return true
	}); err != nil {
		t.Fatalf("EnumerateExports: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d exports for a non-PIE executable, want 0", len(got))
	}
}
