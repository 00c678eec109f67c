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

// Package pageprot defines the page protection bitset shared by the memory
// range and module enumerators, along with the /proc/<pid>/maps permission
// string decoding rules.
package pageprot

import "strings"

// Protection is a bitset over the page permissions reported by the kernel
// in /proc/<pid>/maps.
type Protection uint8

const (
	// NoAccess is the empty set: no read, write, or execute permission.
	NoAccess Protection = 0
	// Read grants read access.
	Read Protection = 1 << 0
	// Write grants write access.
	Write Protection = 1 << 1
	// Execute grants execute access.
	Execute Protection = 1 << 2
)

// String implements fmt.Stringer, rendering the classic "rwx"-style triple.
func (p Protection) String() string {
	var b strings.Builder
	if p&Read != 0 {
		b.WriteByte('r')
	} else {
		b.WriteByte('-')
	}
	if p&Write != 0 {
		b.WriteByte('w')
	} else {
		b.WriteByte('-')
	}
	if p&Execute != 0 {
		b.WriteByte('x')
	} else {
		b.WriteByte('-')
	}
	return b.String()
}

// Satisfies reports whether p grants at least every permission in
// requested, i.e. requested is a subset of p.
func (p Protection) Satisfies(requested Protection) bool {
	return p&requested == requested
}

// FromPermsString decodes a /proc/<pid>/maps permission field such as
// "rwxp" or "r--p". Only the first three characters are consulted: position
// 0 is read, 1 is write, 2 is execute (the fourth character, private/shared,
// is not part of PageProtection).
func FromPermsString(perms string) Protection {
	var p Protection
	if len(perms) > 0 && perms[0] == 'r' {
		p |= Read
	}
	if len(perms) > 1 && perms[1] == 'w' {
		p |= Write
	}
	if len(perms) > 2 && perms[2] == 'x' {
		p |= Execute
	}
	return p
}
