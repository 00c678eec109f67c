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

// Package cpucontext defines the canonical, architecture-tagged register
// snapshot exchanged between the thread context broker and a caller's
// visitor, and the marshaller that converts it to and from the kernel's
// machine context delivered to a signal handler.
//
// Segment registers, FPU/SIMD state, and flags are intentionally outside
// this surface -- a limitation inherited from the source design, not an
// oversight.
package cpucontext

import "fmt"

// Arch identifies which register bank a Context carries.
type Arch int

const (
	// ArchX86 is the 32-bit x86 architecture: eip + 8 GPRs.
	ArchX86 Arch = iota
	// ArchX86_64 is the x86-64 architecture: rip + 16 GPRs.
	ArchX86_64
)

// String implements fmt.Stringer.
func (a Arch) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86_64"
	default:
		return fmt.Sprintf("Arch(%d)", int(a))
	}
}

// X86Context is the register bank for 32-bit x86: instruction pointer plus
// the eight general purpose registers.
type X86Context struct {
	Eip uint32

	Edi, Esi, Ebp, Esp uint32
	Ebx, Edx, Ecx, Eax uint32
}

// X86_64Context is the register bank for x86-64: instruction pointer plus
// all sixteen general purpose registers.
type X86_64Context struct {
	Rip uint64

	R8, R9, R10, R11, R12, R13, R14, R15  uint64
	Rdi, Rsi, Rbp, Rsp, Rbx, Rdx, Rcx, Rax uint64
}

// Context is the canonical CPU context: an architecture tag plus exactly
// one populated register bank.
type Context struct {
	Arch Arch

	X86    X86Context
	X86_64 X86_64Context
}

// Clone returns a deep (value) copy of ctx. Context contains no pointers, so
// this is equivalent to a plain assignment, but it documents the intent at
// call sites that hand a context to a visitor that might retain it.
func (c Context) Clone() Context {
	return c
}

// InstructionPointer returns the program counter for whichever bank is
// populated, widened to uint64.
func (c Context) InstructionPointer() uint64 {
	switch c.Arch {
	case ArchX86:
		return uint64(c.X86.Eip)
	case ArchX86_64:
		return c.X86_64.Rip
	default:
		return 0
	}
}

// SetInstructionPointer sets the program counter for whichever bank is
// populated.
func (c *Context) SetInstructionPointer(pc uint64) {
	switch c.Arch {
	case ArchX86:
		c.X86.Eip = uint32(pc)
	case ArchX86_64:
		c.X86_64.Rip = pc
	}
}
