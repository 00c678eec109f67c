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
	"fmt"

	"github.com/tyilo/gumcore/pkg/invariant"
	"github.com/tyilo/gumcore/pkg/memrange"
	"github.com/tyilo/gumcore/pkg/pageprot"
)

// Export is one resolved dynamic export: its name and runtime address,
// rebased against the module's load address.
type Export struct {
	Name    string
	Address uintptr
}

// Visitor receives one Export per call and reports whether enumeration
// should continue.
type Visitor func(Export) bool

// EnumerateExports finds the named module in the calling process, maps its
// backing file read-only, and visits every global or weak defined function
// symbol in its dynamic symbol table, with Address rebased against the
// module's runtime load address. A module with no SHT_DYNSYM section (e.g.
// a non-PIE executable) yields no visits and no error: having nothing to
// export is success with zero symbols, not failure.
func EnumerateExports(moduleName string, visit Visitor) error {
	base, path, err := locateModule(moduleName)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("elfexport: module %q is not mapped", moduleName)
	}
	return enumerateExportsAt(path, base, visit)
}

// FindExportByName returns the rebased address of symbolName in moduleName,
// or 0 if the module has no export of that name. This is EnumerateExports
// driven by an internal visitor that records the first match and stops.
func FindExportByName(moduleName, symbolName string) (uintptr, error) {
	var found uintptr
	err := EnumerateExports(moduleName, func(e Export) bool {
		if e.Name == symbolName {
			found = e.Address
			return false
		}
		return true
	})
	return found, err
}

func locateModule(name string) (base uintptr, path string, err error) {
	err = memrange.EnumerateModules(func(m memrange.Module) bool {
		if m.Name == name {
			base = m.Base
			path = m.Path
			return false
		}
		return true
	})
	return base, path, err
}

func enumerateExportsAt(path string, base uintptr, visit Visitor) error {
	f, release, err := openFile(path)
	if err != nil {
		return err
	}
	defer release()

	if f.eType() != etDyn {
		// A non-PIE executable or relocatable object: no exports to walk,
		// which is not a failure.
		return nil
	}

	dynsym, strtab, err := f.findDynsym()
	if err != nil {
		if err == errNoDynsym {
			return nil
		}
		return err
	}

	entsize := f.symEntrySize()
	if int(dynsym.Size)%entsize != 0 {
		return invariant.Check("elfexport: %s: dynsym section size %d is not a multiple of entry size %d", path, dynsym.Size, entsize)
	}
	count := int(dynsym.Size) / entsize

	// Index the calling process's executable ranges once so every resolved
	// export can be checked to lie within a mapped executable range before it
	// is handed to visit. The index covers every executable range of the
	// process; it does not check that the range belongs to this module.
	execRanges, err := memrange.NewIndex(pageprot.Execute)
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		s, err := f.symAt(dynsym, i)
		if err != nil {
			return err
		}
		if b := bind(s.Info); b != stbGlobal && b != stbWeak {
			continue
		}
		if typ(s.Info) != sttFunc {
			continue
		}
		if s.Shndx == shnUndef {
			continue
		}

		name, err := f.cString(strtab, s.Name)
		if err != nil {
			return err
		}

		e := Export{Name: name, Address: base + uintptr(s.Value)}
		if _, ok := execRanges.RangeContaining(e.Address); !ok {
			return invariant.Check("elfexport: %s: export %q resolves to %#x, which is not in any mapped executable range", path, e.Name, e.Address)
		}
		if !visit(e) {
			return nil
		}
	}
	return nil
}
