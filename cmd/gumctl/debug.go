// Copyright 2021 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/containerd/log"
)

var installDebugSigHandlerOnce sync.Once

// installDebugSigHandler arranges for SIGUSR2 to dump every goroutine's
// stack to the debug log, so a gumctl run that's wedged inside the
// cross-thread rendezvous busy-waits can be inspected without killing it.
func installDebugSigHandler() {
	installDebugSigHandlerOnce.Do(func() {
		dumpCh := make(chan os.Signal, 1)
		signal.Notify(dumpCh, syscall.SIGUSR2)
		go func() {
			buf := make([]byte, 10240)
			for range dumpCh {
				for {
					n := runtime.Stack(buf, true)
					if n < len(buf) {
						log.L.Debugf("User requested stack trace:\n%s", buf[:n])
						break
					}
					buf = make([]byte, 2*len(buf))
				}
			}
		}()
		log.L.Debugf("For a full stack dump run: kill -%d %d", syscall.SIGUSR2, os.Getpid())
	})
}
