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

// Package elfexport walks the dynamic symbol table of an ELF32/ELF64 shared
// object, rebasing each exported function's link-time address against the
// object's runtime load address. It parses the file itself rather than
// relying on a higher-level ELF library, working directly over a private
// read-only mapping of the whole file the way a hot-path symbol resolver
// would.
package elfexport

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	eiClass = 4
	eiData  = 5

	classNone = 0
	class32   = 1
	class64   = 2

	dataNone = 0
	data2LSB = 1
	data2MSB = 2
)

// elf type (e_type) values.
const (
	etExec = 2
	etDyn  = 3
)

// section type (sh_type) values.
const shtDynsym = 11

// symbol bind/type, extracted from st_info.
const (
	stbLocal  = 0
	stbGlobal = 1
	stbWeak   = 2

	sttFunc = 2

	shnUndef = 0
)

// file is a private read-only mapping of an ELF image plus the decoded
// identification bytes needed to dispatch between the 32- and 64-bit header
// layouts.
type file struct {
	data    []byte
	is64    bool
	byteOrd binary.ByteOrder
}

// openFile maps path read-only and validates its ELF identification.
func openFile(path string) (*file, func(), error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("elfexport: open %s: %w", path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, nil, fmt.Errorf("elfexport: fstat %s: %w", path, err)
	}
	size := int(st.Size)
	if size < 16 {
		return nil, nil, fmt.Errorf("elfexport: %s too small to be ELF", path)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("elfexport: mmap %s: %w", path, err)
	}
	release := func() { unix.Munmap(data) }

	if data[0] != 0x7f || data[1] != 'E' || data[2] != 'L' || data[3] != 'F' {
		release()
		return nil, nil, fmt.Errorf("elfexport: %s is not an ELF file", path)
	}

	var is64 bool
	switch data[eiClass] {
	case class32:
		is64 = false
	case class64:
		is64 = true
	default:
		release()
		return nil, nil, fmt.Errorf("elfexport: %s has unrecognized ELF class %d", path, data[eiClass])
	}

	var ord binary.ByteOrder
	switch data[eiData] {
	case data2LSB:
		ord = binary.LittleEndian
	case data2MSB:
		ord = binary.BigEndian
	default:
		release()
		return nil, nil, fmt.Errorf("elfexport: %s has unrecognized ELF data encoding %d", path, data[eiData])
	}

	return &file{data: data, is64: is64, byteOrd: ord}, release, nil
}

func (f *file) u16(off int) uint16 { return f.byteOrd.Uint16(f.data[off : off+2]) }
func (f *file) u32(off int) uint32 { return f.byteOrd.Uint32(f.data[off : off+4]) }
func (f *file) u64(off int) uint64 { return f.byteOrd.Uint64(f.data[off : off+8]) }

func (f *file) eType() uint16 { return f.u16(16) }

func (f *file) eShoff() uint64 {
	if f.is64 {
		return f.u64(40)
	}
	return uint64(f.u32(32))
}

func (f *file) eShentsize() uint16 {
	if f.is64 {
		return f.u16(58)
	}
	return f.u16(46)
}

func (f *file) eShnum() uint16 {
	if f.is64 {
		return f.u16(60)
	}
	return f.u16(48)
}

// shdr is a decoded section header, independent of ELF class.
type shdr struct {
	Type   uint32
	Offset uint64
	Size   uint64
	Link   uint32
}

// sectionAt decodes the index'th section header (header offset + index ×
// entry size), reading only the fields the dynsym walk needs.
func (f *file) sectionAt(index int) (shdr, error) {
	shoff := f.eShoff()
	entsize := int(f.eShentsize())
	base := int(shoff) + index*entsize
	if base+entsize > len(f.data) {
		return shdr{}, fmt.Errorf("elfexport: section header %d out of bounds", index)
	}

	var sh shdr
	sh.Type = f.u32(base + 4)
	if f.is64 {
		sh.Offset = f.u64(base + 24)
		sh.Size = f.u64(base + 32)
		sh.Link = f.u32(base + 40)
	} else {
		sh.Offset = uint64(f.u32(base + 16))
		sh.Size = uint64(f.u32(base + 20))
		sh.Link = f.u32(base + 24)
	}
	return sh, nil
}

// findDynsym locates the single SHT_DYNSYM section header, and its
// companion string table section header via sh_link.
func (f *file) findDynsym() (dynsym, strtab shdr, err error) {
	n := int(f.eShnum())
	found := false
	for i := 0; i < n; i++ {
		sh, err := f.sectionAt(i)
		if err != nil {
			return shdr{}, shdr{}, err
		}
		if sh.Type != shtDynsym {
			continue
		}
		if found {
			return shdr{}, shdr{}, fmt.Errorf("elfexport: more than one SHT_DYNSYM section")
		}
		dynsym = sh
		found = true
	}
	if !found {
		return shdr{}, shdr{}, errNoDynsym
	}
	strtab, err = f.sectionAt(int(dynsym.Link))
	if err != nil {
		return shdr{}, shdr{}, fmt.Errorf("elfexport: dynsym sh_link points outside the section table: %w", err)
	}
	return dynsym, strtab, nil
}

// errNoDynsym signals "no exports": the caller treats it as an empty
// result, not a failure, matching a non-PIE executable with no dynamic
// symbol table.
var errNoDynsym = fmt.Errorf("elfexport: no SHT_DYNSYM section")

// symEntrySize is the class-dependent Elf32_Sym/Elf64_Sym size.
func (f *file) symEntrySize() int {
	if f.is64 {
		return 24
	}
	return 16
}

// sym is one decoded dynamic symbol table entry.
type sym struct {
	Name  uint32
	Value uint64
	Info  uint8
	Shndx uint16
}

func (f *file) symAt(dynsym shdr, index int) (sym, error) {
	entsize := f.symEntrySize()
	base := int(dynsym.Offset) + index*entsize
	if base+entsize > len(f.data) {
		return sym{}, fmt.Errorf("elfexport: symbol table entry %d out of bounds", index)
	}

	var s sym
	if f.is64 {
		s.Name = f.u32(base)
		s.Info = f.data[base+4]
		s.Shndx = f.u16(base + 6)
		s.Value = f.u64(base + 8)
	} else {
		s.Name = f.u32(base)
		s.Value = uint64(f.u32(base + 4))
		s.Info = f.data[base+12]
		s.Shndx = f.u16(base + 14)
	}
	return s, nil
}

// cString reads a NUL-terminated string starting at off within a section
// whose bounds are [start, start+size).
func (f *file) cString(strtab shdr, nameOff uint32) (string, error) {
	start := int(strtab.Offset) + int(nameOff)
	if start < int(strtab.Offset) || start >= int(strtab.Offset+strtab.Size) {
		return "", fmt.Errorf("elfexport: symbol name offset %d out of string table bounds", nameOff)
	}
	end := start
	for end < len(f.data) && f.data[end] != 0 {
		end++
	}
	if end >= len(f.data) {
		return "", fmt.Errorf("elfexport: unterminated string at offset %d", nameOff)
	}
	return string(f.data[start:end]), nil
}

func bind(info uint8) uint8 { return info >> 4 }
func typ(info uint8) uint8  { return info & 0xf }
