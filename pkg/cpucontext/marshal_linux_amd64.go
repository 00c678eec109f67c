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

// The marshaller is the one place this package must drop to cgo: the
// layout of ucontext_t's general purpose register array (uc_mcontext.gregs)
// is defined by glibc, not by Go, and Go programs have no other supported
// way to read or write it in place.

// #cgo CFLAGS: -D_GNU_SOURCE
// #include <ucontext.h>
//
// static unsigned long long gumcore_greg(const ucontext_t *uc, int reg) {
//   return (unsigned long long) uc->uc_mcontext.gregs[reg];
// }
//
// static void gumcore_set_greg(ucontext_t *uc, int reg, unsigned long long v) {
//   uc->uc_mcontext.gregs[reg] = (long long) v;
// }
import "C"

import "unsafe"

// FromLinux reads the x86-64 general purpose registers out of the
// ucontext_t pointed to by uc (as delivered to a SA_SIGINFO signal handler,
// or captured by getcontext) into a canonical Context.
func FromLinux(uc unsafe.Pointer) Context {
	u := (*C.ucontext_t)(uc)
	return Context{
		Arch: ArchX86_64,
		X86_64: X86_64Context{
			Rip: uint64(C.gumcore_greg(u, C.REG_RIP)),

			R8:  uint64(C.gumcore_greg(u, C.REG_R8)),
			R9:  uint64(C.gumcore_greg(u, C.REG_R9)),
			R10: uint64(C.gumcore_greg(u, C.REG_R10)),
			R11: uint64(C.gumcore_greg(u, C.REG_R11)),
			R12: uint64(C.gumcore_greg(u, C.REG_R12)),
			R13: uint64(C.gumcore_greg(u, C.REG_R13)),
			R14: uint64(C.gumcore_greg(u, C.REG_R14)),
			R15: uint64(C.gumcore_greg(u, C.REG_R15)),

			Rdi: uint64(C.gumcore_greg(u, C.REG_RDI)),
			Rsi: uint64(C.gumcore_greg(u, C.REG_RSI)),
			Rbp: uint64(C.gumcore_greg(u, C.REG_RBP)),
			Rsp: uint64(C.gumcore_greg(u, C.REG_RSP)),
			Rbx: uint64(C.gumcore_greg(u, C.REG_RBX)),
			Rdx: uint64(C.gumcore_greg(u, C.REG_RDX)),
			Rcx: uint64(C.gumcore_greg(u, C.REG_RCX)),
			Rax: uint64(C.gumcore_greg(u, C.REG_RAX)),
		},
	}
}

// ToLinux writes ctx's x86-64 registers back into the ucontext_t pointed to
// by uc. ctx must have Arch == ArchX86_64.
func ToLinux(ctx Context, uc unsafe.Pointer) {
	u := (*C.ucontext_t)(uc)
	r := ctx.X86_64

	C.gumcore_set_greg(u, C.REG_RIP, C.ulonglong(r.Rip))

	C.gumcore_set_greg(u, C.REG_R8, C.ulonglong(r.R8))
	C.gumcore_set_greg(u, C.REG_R9, C.ulonglong(r.R9))
	C.gumcore_set_greg(u, C.REG_R10, C.ulonglong(r.R10))
	C.gumcore_set_greg(u, C.REG_R11, C.ulonglong(r.R11))
	C.gumcore_set_greg(u, C.REG_R12, C.ulonglong(r.R12))
	C.gumcore_set_greg(u, C.REG_R13, C.ulonglong(r.R13))
	C.gumcore_set_greg(u, C.REG_R14, C.ulonglong(r.R14))
	C.gumcore_set_greg(u, C.REG_R15, C.ulonglong(r.R15))

	C.gumcore_set_greg(u, C.REG_RDI, C.ulonglong(r.Rdi))
	C.gumcore_set_greg(u, C.REG_RSI, C.ulonglong(r.Rsi))
	C.gumcore_set_greg(u, C.REG_RBP, C.ulonglong(r.Rbp))
	C.gumcore_set_greg(u, C.REG_RSP, C.ulonglong(r.Rsp))
	C.gumcore_set_greg(u, C.REG_RBX, C.ulonglong(r.Rbx))
	C.gumcore_set_greg(u, C.REG_RDX, C.ulonglong(r.Rdx))
	C.gumcore_set_greg(u, C.REG_RCX, C.ulonglong(r.Rcx))
	C.gumcore_set_greg(u, C.REG_RAX, C.ulonglong(r.Rax))
}
