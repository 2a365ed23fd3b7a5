// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transform

import "github.com/macrodiff/macrodiff/difftree"

// FeatureExpressionFilter removes every annotation node whose formula fails
// the given predicate, splicing the node's children into its parents.
//
// This transformation is unsafe: it performs no compensating removal of
// sibling branches, so it can produce semantically invalid trees, e.g.
// removing an If while keeping its Else. Use it only for analyses that
// inspect nodes in isolation.
func FeatureExpressionFilter(keep func(*difftree.DiffNode) bool) Transformer {
	return featureFilter{keep: keep}
}

type featureFilter struct {
	keep func(*difftree.DiffNode) bool
}

func (featureFilter) Kind() Kind   { return KindFeatureFilter }
func (featureFilter) Deps() []Kind { return nil }

func (f featureFilter) Transform(t *difftree.DiffTree) error {
	var illegal []*difftree.DiffNode
	t.Walk(func(n *difftree.DiffNode) error {
		if n.IsAnnotation() && !f.keep(n) {
			illegal = append(illegal, n)
		}
		return nil
	})
	for _, n := range illegal {
		t.SpliceOut(n)
	}
	return nil
}
