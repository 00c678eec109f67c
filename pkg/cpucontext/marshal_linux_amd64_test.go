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

//go:build linux && amd64

package cpucontext

import (
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
)

// ucontextBuf returns zeroed, 8-byte-aligned storage large enough to hold a
// glibc ucontext_t (968 bytes on x86-64). Tests cannot use cgo directly, so
// the buffer stands in for the real struct; the marshaller only ever touches
// the gregs array well inside it.
func ucontextBuf() unsafe.Pointer {
	buf := make([]uint64, 256)
	return unsafe.Pointer(&buf[0])
}

// TestRoundTrip exercises the "Context -> machine context -> Context"
// identity law on the registers this marshaller covers.
func TestRoundTrip(t *testing.T) {
	uc := ucontextBuf()
	want := Context{
		Arch: ArchX86_64,
		X86_64: X86_64Context{
			Rip: 0x0000555555554000,
			R8:  8, R9: 9, R10: 10, R11: 11, R12: 12, R13: 13, R14: 14, R15: 15,
			Rdi: 0xdead, Rsi: 0xbeef, Rbp: 0x1000, Rsp: 0x2000,
			Rbx: 0xbbbb, Rdx: 0xdddd, Rcx: 0xcccc, Rax: 0xaaaa,
		},
	}

	ToLinux(want, uc)
	got := FromLinux(uc)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestFromLinuxZeroed confirms a zeroed machine context decodes to zeroed
// registers with the right architecture tag, rather than garbage offsets.
func TestFromLinuxZeroed(t *testing.T) {
	got := FromLinux(ucontextBuf())
	if got.Arch != ArchX86_64 {
		t.Errorf("Arch = %v, want %v", got.Arch, ArchX86_64)
	}
	if got.X86_64 != (X86_64Context{}) {
		t.Errorf("registers = %+v, want all zero", got.X86_64)
	}
}
