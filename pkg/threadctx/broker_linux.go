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

// This file is the cross-thread half of the broker: a real-time signal
// hijacks the target thread, which publishes its machine
// context into a process-global buffer and spins until the requester has
// examined (and possibly mutated) it. None of this can be expressed in Go
// alone -- sigaction with a SA_SIGINFO handler, and the ucontext_t it is
// handed, only exist at the C ABI -- so the handler and its busy-waits live
// in the preamble below, in C, using C11 atomics for the acquire/release
// visibility the protocol requires. The handler never calls back into Go:
// it only publishes and consumes the shared buffer, which keeps it safe to
// run in an async-signal context.

// #include <sched.h>
// #include <signal.h>
// #include <stdatomic.h>
// #include <string.h>
// #include <ucontext.h>
//
// static _Atomic int gumcore_did_load;
// static _Atomic int gumcore_did_modify;
// static _Atomic int gumcore_did_store;
// static ucontext_t gumcore_shared_ctx;
// static struct sigaction gumcore_old_action;
//
// static int gumcore_rt_signal_base(void) {
//   return SIGRTMIN;
// }
//
// static void gumcore_signal_handler(int sig, siginfo_t *info, void *uctxp) {
//   ucontext_t *uctx = (ucontext_t *) uctxp;
//   memcpy(&gumcore_shared_ctx, uctx, sizeof(ucontext_t));
//   atomic_store_explicit(&gumcore_did_load, 1, memory_order_release);
//   while (!atomic_load_explicit(&gumcore_did_modify, memory_order_acquire))
//     sched_yield();
//   memcpy(uctx, &gumcore_shared_ctx, sizeof(ucontext_t));
//   atomic_store_explicit(&gumcore_did_store, 1, memory_order_release);
// }
//
// static void gumcore_reset_flags(void) {
//   atomic_store_explicit(&gumcore_did_load, 0, memory_order_relaxed);
//   atomic_store_explicit(&gumcore_did_modify, 0, memory_order_relaxed);
//   atomic_store_explicit(&gumcore_did_store, 0, memory_order_relaxed);
// }
//
// static int gumcore_load_did_load(void) {
//   return atomic_load_explicit(&gumcore_did_load, memory_order_acquire);
// }
//
// static void gumcore_set_did_modify(void) {
//   atomic_store_explicit(&gumcore_did_modify, 1, memory_order_release);
// }
//
// static int gumcore_load_did_store(void) {
//   return atomic_load_explicit(&gumcore_did_store, memory_order_acquire);
// }
//
// static int gumcore_install_handler(int sig) {
//   struct sigaction action;
//   memset(&action, 0, sizeof(action));
//   action.sa_sigaction = gumcore_signal_handler;
//   sigemptyset(&action.sa_mask);
//   /* SA_ONSTACK: goroutine stacks are too small to take a signal frame;
//      the Go runtime installs an alternate stack on every thread. */
//   action.sa_flags = SA_SIGINFO | SA_ONSTACK;
//   return sigaction(sig, &action, &gumcore_old_action);
// }
//
// static void gumcore_restore_handler(int sig) {
//   sigaction(sig, &gumcore_old_action, NULL);
// }
//
// static void *gumcore_shared_ctx_ptr(void) {
//   return (void *) &gumcore_shared_ctx;
// }
//
// extern void gumcoreInvokeSameThreadVisitor(unsigned long long handle, void *uctxp);
//
// static void gumcore_modify_thread_same(unsigned long long handle) {
//   ucontext_t uc;
//   volatile int modified = 0;
//   getcontext(&uc);
//   if (!modified) {
//     modified = 1;
//     gumcoreInvokeSameThreadVisitor(handle, &uc);
//     setcontext(&uc);
//   }
// }
import "C"

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/tyilo/gumcore/internal/ratelog"
	"github.com/tyilo/gumcore/pkg/cpucontext"
)

// rendezvousMu is the single process-wide mutex guarding the rendezvous:
// only one cross-thread rendezvous may be in flight at a time.
var rendezvousMu sync.Mutex

// signalOffset is added to SIGRTMIN to pick the rendezvous signal; 7 is the
// default. SetSignalOffset lets a deployment move off it if something else
// in the same process already claims SIGRTMIN+7.
var signalOffset int32 = 7

// SetSignalOffset overrides the real-time signal offset used for
// cross-thread rendezvous. It must not be called while a rendezvous may be
// in flight.
func SetSignalOffset(offset int) {
	atomic.StoreInt32(&signalOffset, int32(offset))
}

// hijackSignal returns SIGRTMIN+signalOffset, the designated real-time
// signal. Real-time signals queue rather than coalesce, so a second
// signalling attempt before the first is consumed is never silently lost.
func hijackSignal() int {
	return int(C.gumcore_rt_signal_base()) + int(atomic.LoadInt32(&signalOffset))
}

// CurrentID returns the calling thread's kernel thread id.
func CurrentID() ID {
	return ID(unix.Gettid())
}

// ModifyThread atomically presents targetID's CPU register snapshot to
// visit, applying any mutation visit makes before the target thread
// resumes. It reports whether the rendezvous completed; a false return
// means the target could not be signalled (e.g. it has already exited) and
// guarantees no observable side effect on the target.
func ModifyThread(targetID ID, visit ContextVisitor) bool {
	if targetID == CurrentID() {
		return modifyThreadSame(visit)
	}
	return modifyThreadCross(targetID, visit)
}

func modifyThreadSame(visit ContextVisitor) bool {
	// The handler callback runs on this same OS thread, synchronously,
	// between getcontext and setcontext; it must not migrate to a
	// different M, or the captured/restored ucontext_t would describe the
	// wrong thread's stack.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	handle := registerSameThreadVisitor(visit)
	defer unregisterSameThreadVisitor(handle)

	C.gumcore_modify_thread_same(C.ulonglong(handle))
	return true
}

func modifyThreadCross(targetID ID, visit ContextVisitor) bool {
	rendezvousMu.Lock()
	defer rendezvousMu.Unlock()

	sig := hijackSignal()

	C.gumcore_reset_flags()
	if C.gumcore_install_handler(C.int(sig)) != 0 {
		return false
	}
	defer C.gumcore_restore_handler(C.int(sig))

	if err := unix.Tgkill(unix.Getpid(), int(targetID), unix.Signal(sig)); err != nil {
		return false
	}

	for C.gumcore_load_did_load() == 0 {
		ratelog.Throttled("threadctx: waiting for target %d to publish its context", targetID)
		runtime.Gosched()
	}

	ctx := cpucontext.FromLinux(C.gumcore_shared_ctx_ptr())
	visit(&ctx)
	cpucontext.ToLinux(ctx, C.gumcore_shared_ctx_ptr())

	C.gumcore_set_did_modify()

	for C.gumcore_load_did_store() == 0 {
		ratelog.Throttled("threadctx: waiting for target %d to store its context", targetID)
		runtime.Gosched()
	}

	return true
}

// sameThreadVisitors lets the C trampoline find the Go closure to invoke by
// an opaque integer handle, since cgo cannot pass a Go closure across the
// C/Go boundary directly.
var (
	sameThreadMu         sync.Mutex
	sameThreadVisitors   = map[uint64]ContextVisitor{}
	sameThreadNextHandle uint64
)

func registerSameThreadVisitor(v ContextVisitor) uint64 {
	sameThreadMu.Lock()
	defer sameThreadMu.Unlock()
	sameThreadNextHandle++
	h := sameThreadNextHandle
	sameThreadVisitors[h] = v
	return h
}

func unregisterSameThreadVisitor(h uint64) {
	sameThreadMu.Lock()
	defer sameThreadMu.Unlock()
	delete(sameThreadVisitors, h)
}
