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
	"github.com/cenkalti/backoff"

	"github.com/containerd/log"
)

// ModifyThreadWithRetry calls ModifyThread(targetID, visit) with an
// exponential backoff retry whenever it returns false, up to maxAttempts
// times. It cannot bound a signal that was already delivered (the target
// must eventually run its handler), but it does bound how long the caller
// waits for tgkill itself to succeed against a target that is momentarily
// unsignallable.
func ModifyThreadWithRetry(targetID ID, visit ContextVisitor, maxAttempts uint64) bool {
	// WithMaxRetries counts retries after the first attempt, and treats 0 as
	// unlimited, so a single attempt needs StopBackOff instead.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if maxAttempts > 1 {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1)
	}

	succeeded := false
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if ModifyThread(targetID, visit) {
			succeeded = true
			return nil
		}
		log.L.Debugf("threadctx: modify_thread attempt %d against %d failed, retrying", attempt, targetID)
		return errRendezvousFailed
	}, b)

	return err == nil && succeeded
}

type rendezvousError string

func (e rendezvousError) Error() string { return string(e) }

const errRendezvousFailed = rendezvousError("threadctx: rendezvous attempt failed")
