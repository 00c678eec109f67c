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

//go:build linux && 386

package cpucontext

// #cgo CFLAGS: -D_GNU_SOURCE
// #include <ucontext.h>
//
// static unsigned int gumcore_greg(const ucontext_t *uc, int reg) {
//   return (unsigned int) uc->uc_mcontext.gregs[reg];
// }
//
// static void gumcore_set_greg(ucontext_t *uc, int reg, unsigned int v) {
//   uc->uc_mcontext.gregs[reg] = (int) v;
// }
import "C"

import "unsafe"

// FromLinux reads the x86-32 general purpose registers out of the
// ucontext_t pointed to by uc into a canonical Context.
func FromLinux(uc unsafe.Pointer) Context {
	u := (*C.ucontext_t)(uc)
	return Context{
		Arch: ArchX86,
		X86: X86Context{
			Eip: uint32(C.gumcore_greg(u, C.REG_EIP)),

			Edi: uint32(C.gumcore_greg(u, C.REG_EDI)),
			Esi: uint32(C.gumcore_greg(u, C.REG_ESI)),
			Ebp: uint32(C.gumcore_greg(u, C.REG_EBP)),
			Esp: uint32(C.gumcore_greg(u, C.REG_ESP)),
			Ebx: uint32(C.gumcore_greg(u, C.REG_EBX)),
			Edx: uint32(C.gumcore_greg(u, C.REG_EDX)),
			Ecx: uint32(C.gumcore_greg(u, C.REG_ECX)),
			Eax: uint32(C.gumcore_greg(u, C.REG_EAX)),
		},
	}
}

// ToLinux writes ctx's x86-32 registers back into the ucontext_t pointed to
// by uc. ctx must have Arch == ArchX86.
func ToLinux(ctx Context, uc unsafe.Pointer) {
	u := (*C.ucontext_t)(uc)
	r := ctx.X86

	C.gumcore_set_greg(u, C.REG_EIP, C.uint(r.Eip))

	C.gumcore_set_greg(u, C.REG_EDI, C.uint(r.Edi))
	C.gumcore_set_greg(u, C.REG_ESI, C.uint(r.Esi))
	C.gumcore_set_greg(u, C.REG_EBP, C.uint(r.Ebp))
	C.gumcore_set_greg(u, C.REG_ESP, C.uint(r.Esp))
	C.gumcore_set_greg(u, C.REG_EBX, C.uint(r.Ebx))
	C.gumcore_set_greg(u, C.REG_EDX, C.uint(r.Edx))
	C.gumcore_set_greg(u, C.REG_ECX, C.uint(r.Ecx))
	C.gumcore_set_greg(u, C.REG_EAX, C.uint(r.Eax))
}
