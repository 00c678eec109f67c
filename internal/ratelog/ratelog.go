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

// Package ratelog throttles a diagnostic log line so that a tight
// scheduler-yield busy-wait doesn't flood the log with one line per
// iteration while still surfacing a rendezvous that is taking an unusually
// long time.
package ratelog

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/containerd/log"
)

// defaultInterval bounds how often Throttled may actually emit a line.
const defaultInterval = 250 * time.Millisecond

// limiter is read by Throttled from every busy-wait iteration of every
// in-flight rendezvous, potentially many goroutines at once, while
// SetInterval may reassign it from a config-loading goroutine; an
// atomic.Pointer keeps that swap safe without making Throttled take a lock
// on its hot path.
var limiter = func() *atomic.Pointer[rate.Limiter] {
	p := &atomic.Pointer[rate.Limiter]{}
	p.Store(rate.NewLimiter(rate.Every(defaultInterval), 1))
	return p
}()

// SetInterval reconfigures the throttle, e.g. from pkg/config.
func SetInterval(d time.Duration) {
	limiter.Store(rate.NewLimiter(rate.Every(d), 1))
}

// Throttled logs a Debugf-formatted line through github.com/containerd/log,
// dropping the call silently when the limiter has no tokens available.
func Throttled(format string, args ...any) {
	if !limiter.Load().Allow() {
		return
	}
	log.L.Debugf(format, args...)
}
