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

//go:build !(linux && (amd64 || 386))

package threadctx

// The rendezvous protocol needs tgkill, a real-time signal, and the
// x86/x86-64 ucontext_t layout cpucontext already restricts itself to; on
// every other GOOS/GOARCH these entry points build but panic immediately,
// so a caller gets a clear message instead of a missing-symbol link error.
type unsupportedPlatform string

// SetSignalOffset is unavailable on this platform.
func SetSignalOffset(offset int) {
	panic(unsupportedPlatform("threadctx: SetSignalOffset is unavailable on this platform"))
}

// CurrentID is unavailable on this platform.
func CurrentID() ID {
	panic(unsupportedPlatform("threadctx: CurrentID is unavailable on this platform"))
}

// ModifyThread is unavailable on this platform.
func ModifyThread(targetID ID, visit ContextVisitor) bool {
	panic(unsupportedPlatform("threadctx: ModifyThread is unavailable on this platform"))
}
