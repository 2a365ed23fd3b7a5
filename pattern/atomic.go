// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pattern

import (
	"github.com/crillab/gophersat/bf"

	"github.com/macrodiff/macrodiff/difftree"
	"github.com/macrodiff/macrodiff/difftree/logic"
)

// The atomic catalog, in match priority order. Every code node falls into
// exactly one class:
//
//	AddWithMapping  added code under an added annotation
//	AddToPC         added code under an existing presence condition
//	RemWithMapping  removed code under a removed annotation
//	RemFromPC       removed code out of a surviving presence condition
//	WrapCode        unchanged code whose condition strictly narrowed
//	UnwrapCode      unchanged code whose condition strictly widened
//	ChangePC        unchanged code whose condition changed incomparably
//	Unchanged       unchanged code under an equivalent condition
var atomicCatalog = []catalogEntry{
	{"AddWithMapping", matchAddWithMapping},
	{"AddToPC", matchAddToPC},
	{"RemWithMapping", matchRemWithMapping},
	{"RemFromPC", matchRemFromPC},
	{"WrapCode", matchWrapCode},
	{"UnwrapCode", matchUnwrapCode},
	{"ChangePC", matchChangePC},
	{"Unchanged", matchUnchanged},
}

func matchAddWithMapping(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !n.IsAdd() {
		return false, nil
	}
	p := t.Node(n.Parent(difftree.After))
	return p != nil && p.IsAdd(), nil
}

func matchAddToPC(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	return n.IsAdd(), nil
}

func matchRemWithMapping(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !n.IsRem() {
		return false, nil
	}
	p := t.Node(n.Parent(difftree.Before))
	return p != nil && p.IsRem(), nil
}

func matchRemFromPC(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	return n.IsRem(), nil
}

// presenceConditions computes the before and after presence conditions of
// an unchanged node.
func presenceConditions(t *difftree.DiffTree, n *difftree.DiffNode) (before, after bf.Formula, err error) {
	before, err = t.PresenceCondition(n, difftree.Before)
	if err != nil {
		return nil, nil, err
	}
	after, err = t.PresenceCondition(n, difftree.After)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func matchWrapCode(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !n.IsNon() {
		return false, nil
	}
	pcb, pca, err := presenceConditions(t, n)
	if err != nil {
		return false, err
	}
	return logic.Implies(pca, pcb) && !logic.Implies(pcb, pca), nil
}

func matchUnwrapCode(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !n.IsNon() {
		return false, nil
	}
	pcb, pca, err := presenceConditions(t, n)
	if err != nil {
		return false, err
	}
	return logic.Implies(pcb, pca) && !logic.Implies(pca, pcb), nil
}

func matchChangePC(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	if !n.IsNon() {
		return false, nil
	}
	pcb, pca, err := presenceConditions(t, n)
	if err != nil {
		return false, err
	}
	return !logic.Equivalent(pcb, pca), nil
}

// matchUnchanged distinguishes "line untouched" from "line untouched but
// its context condition changed"; the latter was taken by the earlier
// catalog entries, so the remaining unchanged nodes sit under equivalent
// presence conditions.
func matchUnchanged(t *difftree.DiffTree, n *difftree.DiffNode) (bool, error) {
	return n.IsNon(), nil
}
