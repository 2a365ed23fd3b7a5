// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logic

import (
	"testing"

	"github.com/crillab/gophersat/bf"
)

func TestSatisfiable(t *testing.T) {
	a := bf.Var("A")
	for _, tc := range []struct {
		name string
		f    bf.Formula
		want bool
	}{
		{"var", a, true},
		{"contradiction", bf.And(a, bf.Not(a)), false},
		{"true", bf.True, true},
		{"false", bf.False, false},
	} {
		if got := Satisfiable(tc.f); got != tc.want {
			t.Errorf("%s: Satisfiable=%t; want %t", tc.name, got, tc.want)
		}
	}
}

func TestTautology(t *testing.T) {
	a := bf.Var("A")
	if !Tautology(bf.Or(a, bf.Not(a))) {
		t.Errorf("A or not A is not a tautology")
	}
	if Tautology(a) {
		t.Errorf("A alone is a tautology")
	}
}

func TestImplies(t *testing.T) {
	a, b := bf.Var("A"), bf.Var("B")
	if !Implies(bf.And(a, b), a) {
		t.Errorf("A and B does not imply A")
	}
	if Implies(a, bf.And(a, b)) {
		t.Errorf("A implies A and B")
	}
}

func TestEquivalent(t *testing.T) {
	a, b := bf.Var("A"), bf.Var("B")
	if !Equivalent(bf.And(a, b), bf.And(b, a)) {
		t.Errorf("conjunction is not commutative under Equivalent")
	}
	if Equivalent(a, b) {
		t.Errorf("distinct variables are equivalent")
	}
	if !Equivalent(bf.Not(bf.Or(a, b)), bf.And(bf.Not(a), bf.Not(b))) {
		t.Errorf("De Morgan does not hold under Equivalent")
	}
}
