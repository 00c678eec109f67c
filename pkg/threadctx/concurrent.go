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

package threadctx

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Rendezvous pairs a target thread with the visitor to run against it, for
// use with ModifyThreadConcurrently.
type Rendezvous struct {
	TargetID ID
	Visit    ContextVisitor
}

// ModifyThreadConcurrently launches one goroutine per Rendezvous and
// returns once every rendezvous has finished, with the error of the first
// one that failed, if any. rendezvousMu already serialises the underlying
// protocol, so this exercises contention on that mutex rather than
// concurrent execution of the protocol itself: no two cross-thread
// rendezvous flag-buffer transitions may interleave.
func ModifyThreadConcurrently(ctx context.Context, rs []Rendezvous) error {
	g, _ := errgroup.WithContext(ctx)
	for _, r := range rs {
		r := r
		g.Go(func() error {
			if !ModifyThread(r.TargetID, r.Visit) {
				return fmt.Errorf("threadctx: modify_thread(%d) failed", r.TargetID)
			}
			return nil
		})
	}
	return g.Wait()
}
