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

package procfs

import (
	"strings"
	"testing"

	"github.com/tyilo/gumcore/pkg/invariant"
)

const sampleMaps = `00400000-00452000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon
00651000-00652000 r--p 00051000 08:02 173521      /usr/bin/dbus-daemon
007d1000-007f3000 rw-p 00000000 00:00 0           [heap]
7f2b6f5a8000-7f2b6f5c9000 rw-p 00000000 00:00 0
7f2b6f7c8000-7f2b6f7ca000 r-xp 00000000 08:02 262316      /lib/x86_64-linux-gnu/ld-2.23.so
7ffd32f2b000-7ffd32f4c000 rw-p 00000000 00:00 0           [stack]
7ffd32f7c000-7ffd32f7e000 r-xp 00000000 00:00 0           [vdso]
`

func TestScanMapsModules(t *testing.T) {
	var got []MapsModuleLine
	if err := ScanMapsModules(strings.NewReader(sampleMaps), func(l MapsModuleLine) bool {
		got = append(got, l)
		return true
	}); err != nil {
		t.Fatalf("ScanMapsModules: %v", err)
	}
	var withPath int
	for _, l := range got {
		if l.HasPath {
			withPath++
		}
	}
	if withPath != 6 {
		t.Fatalf("got %d lines with a path, want 6 (dbus-daemon x2, [heap], ld.so, [stack], [vdso])", withPath)
	}
	if got[0].Start != 0x00400000 {
		t.Errorf("first start = %#x, want %#x", got[0].Start, 0x00400000)
	}
	// The heap line's inode field is "0", which also occurs inside its
	// address field; the path must still come out exactly as "[heap]".
	if got[2].Path != "[heap]" {
		t.Errorf("pseudo path = %q, want %q", got[2].Path, "[heap]")
	}
	if got[3].HasPath {
		t.Errorf("anonymous mapping unexpectedly has path %q", got[3].Path)
	}
}

func TestScanMapsRanges(t *testing.T) {
	var got []MapsRangeLine
	if err := ScanMapsRanges(strings.NewReader(sampleMaps), func(l MapsRangeLine) bool {
		got = append(got, l)
		return true
	}); err != nil {
		t.Fatalf("ScanMapsRanges: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d ranges, want 7", len(got))
	}
	if got[2].Perms != "rw-p" {
		t.Errorf("perms = %q, want %q", got[2].Perms, "rw-p")
	}
	if got[2].End-got[2].Start != 0x007f3000-0x007d1000 {
		t.Errorf("range size mismatch")
	}
}

func TestScanMapsModuleRanges(t *testing.T) {
	var got []MapsModuleRangeLine
	if err := ScanMapsModuleRanges(strings.NewReader(sampleMaps), func(l MapsModuleRangeLine) bool {
		got = append(got, l)
		return true
	}); err != nil {
		t.Fatalf("ScanMapsModuleRanges: %v", err)
	}
	var dbus int
	for _, l := range got {
		if l.HasPath && Basename(l.Path) == "dbus-daemon" {
			dbus++
		}
	}
	if dbus != 2 {
		t.Errorf("got %d dbus-daemon ranges, want 2", dbus)
	}
}

func TestIsPseudoPath(t *testing.T) {
	if !IsPseudoPath("[heap]") {
		t.Error("[heap] should be a pseudo path")
	}
	if IsPseudoPath("/usr/bin/dbus-daemon") {
		t.Error("a real path should not be a pseudo path")
	}
}

func TestTaskStatState(t *testing.T) {
	for _, test := range []struct {
		contents string
		want     byte
	}{
		{"1234 (bash) S 1 1234 1234 0 -1 4194304", 'S'},
		{"1234 (my (weird) proc) R 1 1234", 'R'},
	} {
		got, err := TaskStatState(test.contents)
		if err != nil {
			t.Fatalf("TaskStatState(%q): %v", test.contents, err)
		}
		if got != test.want {
			t.Errorf("TaskStatState(%q) = %q, want %q", test.contents, got, test.want)
		}
	}
}

func TestTaskStatStateMalformed(t *testing.T) {
	// Malformed /proc contents are an invariant violation, which panics by
	// default; exercise the hardened-mode error-return path instead.
	invariant.SetHardened(true)
	defer invariant.SetHardened(false)

	if _, err := TaskStatState("no parens here"); err == nil {
		t.Error("expected an error for malformed stat contents")
	}
}
