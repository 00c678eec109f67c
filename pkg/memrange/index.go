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

package memrange

import (
	"github.com/google/btree"

	"github.com/tyilo/gumcore/pkg/pageprot"
)

// rangeItem is the btree.Item keyed by base address that backs Index.
type rangeItem struct {
	r Range
}

func (a rangeItem) Less(than btree.Item) bool {
	return a.r.MemoryRange.Base < than.(rangeItem).r.MemoryRange.Base
}

// Index is a base-address-ordered index over a snapshot of a process's
// memory ranges, supporting reverse lookup: "which range, if any, contains
// this address". elfexport uses this to confirm an exported symbol's
// rebased address lies within an executable range of the calling process.
type Index struct {
	tree *btree.BTree
}

// NewIndex builds an Index by enumerating every range of the calling
// process matching requested.
func NewIndex(requested pageprot.Protection) (*Index, error) {
	tree := btree.New(32)
	err := EnumerateRanges(requested, func(r Range) bool {
		tree.ReplaceOrInsert(rangeItem{r})
		return true
	})
	if err != nil {
		return nil, err
	}
	return &Index{tree: tree}, nil
}

// RangeContaining returns the range containing addr and true, or the zero
// Range and false if no indexed range contains it.
func (idx *Index) RangeContaining(addr uintptr) (Range, bool) {
	var found Range
	ok := false
	// Walk backward starting at the last item whose base is <= addr: the
	// containing range, if any, is the nearest one at or before addr.
	idx.tree.DescendLessOrEqual(rangeItem{Range{MemoryRange: MemoryRange{Base: addr}}}, func(item btree.Item) bool {
		r := item.(rangeItem).r
		if addr >= r.MemoryRange.Base && addr < r.MemoryRange.End() {
			found = r
			ok = true
		}
		return false
	})
	return found, ok
}

// Len returns the number of ranges indexed.
func (idx *Index) Len() int {
	return idx.tree.Len()
}
