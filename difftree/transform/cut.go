// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transform

import "github.com/macrodiff/macrodiff/difftree"

// CutNonEditedSubtrees removes every maximal subtree in which nothing was
// edited. What remains is the edited nodes plus the annotations enclosing
// them. Running it twice yields the same tree as running it once.
func CutNonEditedSubtrees() Transformer { return cutNonEdited{} }

type cutNonEdited struct{}

func (cutNonEdited) Kind() Kind   { return KindCutNonEdited }
func (cutNonEdited) Deps() []Kind { return nil }

func (cutNonEdited) Transform(t *difftree.DiffTree) error {
	edited := make(map[difftree.NodeID]bool)
	var mark func(n *difftree.DiffNode) bool
	mark = func(n *difftree.DiffNode) bool {
		e := !n.IsNon()
		for _, c := range t.ChildNodes(n) {
			if mark(c) {
				e = true
			}
		}
		edited[n.ID] = e
		return e
	}
	mark(t.Root())

	// Collect maximal unedited subtrees top-down, then detach their heads.
	var victims []*difftree.DiffNode
	var collect func(n *difftree.DiffNode)
	collect = func(n *difftree.DiffNode) {
		for _, c := range t.ChildNodes(n) {
			if edited[c.ID] {
				collect(c)
			} else {
				victims = append(victims, c)
			}
		}
	}
	collect(t.Root())

	for _, v := range victims {
		t.Detach(v)
	}
	return nil
}
