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

//go:build !((linux && amd64) || (linux && 386))

package cpucontext

// This package only specifies the x86 and x86-64 machine context layout.
// FromLinux and ToLinux are intentionally left undefined on every other
// GOOS/GOARCH combination so that any package depending on them fails to
// build here, rather than linking against a register layout nobody has
// specified.
const _ unsupportedArchitecture = "cpucontext: only linux/amd64 and linux/386 are supported"

type unsupportedArchitecture string
