// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package transform rewrites diff trees after construction.
//
// Transformations mutate a tree in place and require exclusive access to
// it. Some transformations only make sense on the output of others; each
// one declares its prerequisites and Apply runs a requested set in
// dependency order, failing fast when a prerequisite was not requested.
package transform

import (
	"fmt"

	"github.com/macrodiff/macrodiff/difftree"
)

// Kind enumerates the closed set of transformations.
type Kind uint8

const (
	// KindCutNonEdited removes subtrees in which nothing was edited.
	KindCutNonEdited Kind = iota
	// KindCollapseNested merges chains of unedited nested annotations.
	KindCollapseNested
	// KindRelabel replaces node labels, e.g. with matched pattern names.
	KindRelabel
	// KindFeatureFilter removes annotations failing a predicate.
	KindFeatureFilter
)

func (k Kind) String() string {
	switch k {
	case KindCutNonEdited:
		return "CutNonEditedSubtrees"
	case KindCollapseNested:
		return "CollapseNestedNonEditedMacros"
	case KindRelabel:
		return "RelabelNodes"
	case KindFeatureFilter:
		return "FeatureExpressionFilter"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Transformer is one tree rewrite step.
type Transformer interface {
	Kind() Kind
	// Deps lists transformations that must run before this one.
	Deps() []Kind
	Transform(t *difftree.DiffTree) error
}

// Apply runs the given transformations in dependency order. A transformer
// whose prerequisite is not part of the requested set is an error; Apply
// never injects transformations the caller did not ask for.
func Apply(t *difftree.DiffTree, ts ...Transformer) error {
	byKind := make(map[Kind]Transformer, len(ts))
	for _, tr := range ts {
		if _, ok := byKind[tr.Kind()]; ok {
			return fmt.Errorf("transformation %v requested twice", tr.Kind())
		}
		byKind[tr.Kind()] = tr
	}

	var order []Transformer
	state := make(map[Kind]int, len(ts)) // 0 new, 1 visiting, 2 done
	var visit func(tr Transformer) error
	visit = func(tr Transformer) error {
		switch state[tr.Kind()] {
		case 2:
			return nil
		case 1:
			return fmt.Errorf("transformation dependency cycle through %v", tr.Kind())
		}
		state[tr.Kind()] = 1
		for _, dep := range tr.Deps() {
			dt, ok := byKind[dep]
			if !ok {
				return fmt.Errorf("transformation %v requires %v, which was not requested", tr.Kind(), dep)
			}
			if err := visit(dt); err != nil {
				return err
			}
		}
		state[tr.Kind()] = 2
		order = append(order, tr)
		return nil
	}
	for _, tr := range ts {
		if err := visit(tr); err != nil {
			return err
		}
	}

	for _, tr := range order {
		if err := tr.Transform(t); err != nil {
			return fmt.Errorf("%v: %w", tr.Kind(), err)
		}
	}
	return nil
}
