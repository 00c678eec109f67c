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

// Package threadctx implements the thread context broker: enumerating the
// threads of the current process and atomically presenting (and optionally
// mutating) a thread's CPU register snapshot, whether that thread is the
// caller itself (the same-thread fast path) or another thread entirely (the
// cross-thread rendezvous).
package threadctx

import (
	"fmt"

	"github.com/tyilo/gumcore/pkg/cpucontext"
	"github.com/tyilo/gumcore/pkg/invariant"
	"github.com/tyilo/gumcore/pkg/procfs"
)

// ID is an opaque thread identifier: the kernel thread id, equal to the
// value returned by CurrentID() for the calling thread.
type ID int32

// State is the coarse scheduling state of a thread, derived from the
// single-character field in /proc/<pid>/task/<tid>/stat.
type State int

const (
	// Running means the thread is currently executing or runnable.
	Running State = iota
	// Waiting means the thread is in interruptible sleep.
	Waiting
	// Uninterruptible covers D (uninterruptible sleep), Z (zombie), and W
	// (paging, on kernels old enough to still report it).
	Uninterruptible
	// Stopped means the thread is stopped, e.g. by SIGSTOP or ptrace.
	Stopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Uninterruptible:
		return "uninterruptible"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// stateFromStatChar maps a /proc/<pid>/task/<tid>/stat state character to a
// State. Any character outside {R,S,D,Z,T,W} is an invariant violation:
// /proc is assumed well-formed by the kernel that produced it.
func stateFromStatChar(c byte) (State, error) {
	switch c {
	case 'R':
		return Running, nil
	case 'S':
		return Waiting, nil
	case 'D', 'Z', 'W':
		return Uninterruptible, nil
	case 'T':
		return Stopped, nil
	default:
		err := invariant.Check("threadctx: unrecognized task state character %q", c)
		return 0, err
	}
}

// Details is a single enumerated thread: its id, coarse scheduling state,
// and CPU register snapshot at the moment it was visited.
type Details struct {
	ID      ID
	State   State
	Context cpucontext.Context
}

// Visitor receives one Details per call from EnumerateThreads and returns
// whether enumeration should continue. ModifyThread takes a ContextVisitor
// instead.
type Visitor func(Details) bool

// ContextVisitor receives a pointer to the live shared CPU context during a
// ModifyThread rendezvous. It may read and/or mutate *ctx; the mutation is
// propagated back to the target thread when the visitor returns.
type ContextVisitor func(ctx *cpucontext.Context)

// EnumerateThreads visits every thread in /proc/self/task, in directory
// order, hijacking each one in turn via ModifyThread (read-only: the
// visitor below never mutates) to populate its CPU context. A thread that
// disappears or cannot be signalled between being listed and being
// hijacked is skipped, not reported as an error: that race is inherent to
// reading a live /proc.
func EnumerateThreads(visit Visitor) error {
	ids, err := procfs.ListTaskIDs(0)
	if err != nil {
		return err
	}
	for _, id := range ids {
		stateByte, err := procfs.ReadTaskStatState(0, id)
		if err != nil {
			continue
		}
		state, err := stateFromStatChar(stateByte)
		if err != nil {
			// Only reachable in hardened mode (otherwise Check panics); a
			// thread whose stat line we can't classify is skipped like any
			// other thread that vanished mid-enumeration.
			continue
		}
		d := Details{ID: ID(id), State: state}

		ok := ModifyThread(ID(id), func(ctx *cpucontext.Context) {
			d.Context = ctx.Clone()
		})
		if !ok {
			continue
		}

		if !visit(d) {
			return nil
		}
	}
	return nil
}
