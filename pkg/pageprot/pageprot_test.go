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

package pageprot

import "testing"

func TestFromPermsString(t *testing.T) {
	for _, test := range []struct {
		perms string
		want  Protection
	}{
		{"---p", NoAccess},
		{"rwxp", Read | Write | Execute},
		{"r--p", Read},
		{"-w-p", Write},
		{"--xp", Execute},
		{"r-xp", Read | Execute},
	} {
		if got := FromPermsString(test.perms); got != test.want {
			t.Errorf("FromPermsString(%q) = %v, want %v", test.perms, got, test.want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	for _, test := range []struct {
		current, requested Protection
		want               bool
	}{
		{Read | Write | Execute, Read | Execute, true},
		{Read, Read | Execute, false},
		{NoAccess, NoAccess, true},
		{Read, NoAccess, true},
	} {
		if got := test.current.Satisfies(test.requested); got != test.want {
			t.Errorf("(%v).Satisfies(%v) = %v, want %v", test.current, test.requested, got, test.want)
		}
	}
}

func TestString(t *testing.T) {
	if got, want := (Read | Execute).String(), "r-x"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
