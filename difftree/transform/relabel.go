// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transform

import "github.com/macrodiff/macrodiff/difftree"

// RelabelNodes replaces every node's label with the result of the given
// function, leaving the tree structure untouched. Callers typically plug in
// a pattern catalog so code nodes get labeled by their matched edit
// pattern and all other nodes by their node type.
func RelabelNodes(label func(*difftree.DiffTree, *difftree.DiffNode) (string, error)) Transformer {
	return relabel{label: label}
}

type relabel struct {
	label func(*difftree.DiffTree, *difftree.DiffNode) (string, error)
}

func (relabel) Kind() Kind   { return KindRelabel }
func (relabel) Deps() []Kind { return nil }

func (r relabel) Transform(t *difftree.DiffTree) error {
	return t.Walk(func(n *difftree.DiffNode) error {
		l, err := r.label(t, n)
		if err != nil {
			return err
		}
		n.Label = l
		return nil
	})
}
