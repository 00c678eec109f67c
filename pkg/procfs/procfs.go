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

// Package procfs parses the three /proc line formats the introspection core
// depends on: maps lines (in their module, range, and module-scoped-range
// shapes) and task stat files. It does no interpretation beyond turning text
// into structured fields; callers (pkg/memrange, pkg/threadctx) own the
// semantics.
package procfs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tyilo/gumcore/pkg/invariant"
)

// mapsLineSize sizes the scanner buffer as 1024 + PATH_MAX to accommodate
// the longest legal backing-file path on a single maps line.
const mapsLineSize = 1024 + 4096

// MapsModuleLine is one parsed line of /proc/<pid>/maps in the shape the
// module enumerator needs: start address and backing path. Lines with no
// backing path (anonymous/pseudo mappings with no path field at all) are
// reported with HasPath false.
type MapsModuleLine struct {
	Start   uintptr
	Path    string
	HasPath bool
}

// MapsRangeLine is one parsed line of /proc/<pid>/maps in the shape the
// whole-process range enumerator needs: start, end, and the raw four
// character permission string.
type MapsRangeLine struct {
	Start, End uintptr
	Perms      string
}

// MapsModuleRangeLine additionally carries the backing path, for the
// module-scoped range enumerator.
type MapsModuleRangeLine struct {
	Start, End uintptr
	Perms      string
	Path       string
	HasPath    bool
}

// root is the /proc mountpoint everything in this package reads under. It
// defaults to "/proc" and is overridden via SetRoot, by tests and by
// gumctl's proc_root config setting, to point at a directory laid out like
// a fake /proc.
var root = "/proc"

// SetRoot overrides the /proc mountpoint and returns a function that
// restores the previous value, for use with defer in tests.
func SetRoot(path string) func() {
	prev := root
	root = path
	return func() { root = prev }
}

// OpenMaps opens <root>/<pid>/maps. pid == 0 opens <root>/self/maps.
func OpenMaps(pid int) (*os.File, error) {
	path := filepath.Join(root, "self", "maps")
	if pid != 0 {
		path = filepath.Join(root, strconv.Itoa(pid), "maps")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("procfs: open %s: %w", path, err)
	}
	return f, nil
}

// OpenMem opens <root>/<pid>/mem, the pseudo-file addressed by virtual
// address, for reading a process's mapped memory. pid == 0 opens
// <root>/self/mem. A ReadAt against an unmapped or unreadable address fails
// with EIO rather than faulting, which is what makes it the safe way to
// probe another mapping's first bytes.
func OpenMem(pid int) (*os.File, error) {
	pidDir := "self"
	if pid != 0 {
		pidDir = strconv.Itoa(pid)
	}
	path := filepath.Join(root, pidDir, "mem")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("procfs: open %s: %w", path, err)
	}
	return f, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), mapsLineSize)
	return s
}

// splitMapsLine splits a single /proc/<pid>/maps line into its
// whitespace-delimited fields: "addr-addr perms offset dev inode [path]".
// The trailing path field is optional and, when present, is everything from
// the first non-space byte after the 5th field onward, so embedded spaces
// in exotic paths are preserved rather than being split into extra fields.
func splitMapsLine(line string) (fields []string, path string, hasPath bool) {
	rest := line
	for len(fields) < 5 {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return fields, "", false
		}
		if i := strings.IndexAny(rest, " \t"); i >= 0 {
			fields = append(fields, rest[:i])
			rest = rest[i:]
		} else {
			fields = append(fields, rest)
			rest = ""
		}
	}
	path = strings.TrimRight(strings.TrimLeft(rest, " \t"), " \t\r\n")
	if path == "" {
		return fields, "", false
	}
	return fields, path, true
}

// parseHexAddr parses one hex address field of a maps line. A malformed
// address is an invariant violation: the kernel is assumed to produce
// well-formed /proc/<pid>/maps lines.
func parseHexAddr(s string) (uintptr, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, invariant.Check("procfs: bad address %q: %v", s, err)
	}
	return uintptr(v), nil
}

func parseAddrRange(field string) (start, end uintptr, err error) {
	parts := strings.SplitN(field, "-", 2)
	if len(parts) != 2 {
		return 0, 0, invariant.Check("procfs: malformed address range %q", field)
	}
	if start, err = parseHexAddr(parts[0]); err != nil {
		return 0, 0, err
	}
	if end, err = parseHexAddr(parts[1]); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ScanMapsModules scans a maps file, emitting a MapsModuleLine per line to
// fn. Only the start address and the trailing path are captured.
func ScanMapsModules(r io.Reader, fn func(MapsModuleLine) bool) error {
	s := newScanner(r)
	for s.Scan() {
		fields, path, hasPath := splitMapsLine(s.Text())
		if len(fields) < 1 {
			continue
		}
		start, _, err := parseAddrRange(fields[0])
		if err != nil {
			return err
		}
		if !fn(MapsModuleLine{Start: start, Path: path, HasPath: hasPath}) {
			return nil
		}
	}
	return s.Err()
}

// ScanMapsRanges scans a maps file, emitting a MapsRangeLine per line to fn.
func ScanMapsRanges(r io.Reader, fn func(MapsRangeLine) bool) error {
	s := newScanner(r)
	for s.Scan() {
		fields, _, _ := splitMapsLine(s.Text())
		if len(fields) < 2 {
			continue
		}
		start, end, err := parseAddrRange(fields[0])
		if err != nil {
			return err
		}
		perms := fields[1]
		if len(perms) > 4 {
			perms = perms[:4]
		}
		if !fn(MapsRangeLine{Start: start, End: end, Perms: perms}) {
			return nil
		}
	}
	return s.Err()
}

// ScanMapsModuleRanges scans a maps file, emitting a MapsModuleRangeLine per
// line to fn.
func ScanMapsModuleRanges(r io.Reader, fn func(MapsModuleRangeLine) bool) error {
	s := newScanner(r)
	for s.Scan() {
		fields, path, hasPath := splitMapsLine(s.Text())
		if len(fields) < 2 {
			continue
		}
		start, end, err := parseAddrRange(fields[0])
		if err != nil {
			return err
		}
		perms := fields[1]
		if len(perms) > 4 {
			perms = perms[:4]
		}
		if !fn(MapsModuleRangeLine{Start: start, End: end, Perms: perms, Path: path, HasPath: hasPath}) {
			return nil
		}
	}
	return s.Err()
}

// Basename returns the final path component of a maps backing-file path.
func Basename(path string) string {
	return filepath.Base(path)
}

// IsPseudoPath reports whether a maps path is a kernel pseudo-region such as
// [vdso], [stack], or [heap] rather than a filesystem path.
func IsPseudoPath(path string) bool {
	return len(path) > 0 && path[0] == '['
}

// TaskStatState extracts the single-character process state field from the
// contents of /proc/<pid>/task/<tid>/stat. The process name field (the
// second, parenthesized field) may itself contain parentheses, so the state
// character is located two bytes after the *last* ')' in the file. Contents
// that don't even contain a well-formed name field are an invariant
// violation: the kernel is assumed to have produced this file.
func TaskStatState(contents string) (byte, error) {
	idx := strings.LastIndexByte(contents, ')')
	if idx < 0 || idx+2 >= len(contents) {
		return 0, invariant.Check("procfs: malformed task stat contents %q", contents)
	}
	return contents[idx+2], nil
}

// ReadTaskStatState reads and parses <root>/<pid>/task/<tid>/stat.
func ReadTaskStatState(pid, tid int) (byte, error) {
	pidDir := "self"
	if pid != 0 {
		pidDir = strconv.Itoa(pid)
	}
	path := filepath.Join(root, pidDir, "task", strconv.Itoa(tid), "stat")
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("procfs: read %s: %w", path, err)
	}
	return TaskStatState(string(b))
}

// ListTaskIDs lists the thread IDs in <root>/<pid>/task (or <root>/self/task
// when pid == 0), in the kernel's directory order.
func ListTaskIDs(pid int) ([]int, error) {
	pidDir := "self"
	if pid != 0 {
		pidDir = strconv.Itoa(pid)
	}
	path := filepath.Join(root, pidDir, "task")
	d, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("procfs: readdir %s: %w", path, err)
	}
	defer d.Close()
	// Readdirnames, unlike os.ReadDir, does not sort its result.
	names, err := d.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("procfs: readdir %s: %w", path, err)
	}
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
