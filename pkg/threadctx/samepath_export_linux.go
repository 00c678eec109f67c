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

//go:build linux && (amd64 || 386)

package threadctx

// This file is kept separate from broker_linux.go because cgo forbids
// //export declarations in a file whose preamble defines symbols. The
// exported trampoline runs on the requesting thread's normal call stack
// (between getcontext and setcontext, never inside a signal handler), so
// calling back into Go here is safe.

import "C"

import (
	"fmt"
	"unsafe"

	"github.com/tyilo/gumcore/pkg/cpucontext"
)

//export gumcoreInvokeSameThreadVisitor
func gumcoreInvokeSameThreadVisitor(handle C.ulonglong, uctxp unsafe.Pointer) {
	sameThreadMu.Lock()
	v, ok := sameThreadVisitors[uint64(handle)]
	sameThreadMu.Unlock()
	if !ok {
		panic(fmt.Sprintf("threadctx: no registered visitor for handle %d", uint64(handle)))
	}

	ctx := cpucontext.FromLinux(uctxp)
	v(&ctx)
	cpucontext.ToLinux(ctx, uctxp)
}
