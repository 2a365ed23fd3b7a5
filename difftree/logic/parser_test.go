// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logic

import (
	"testing"

	"github.com/crillab/gophersat/bf"
)

func TestParseCondition(t *testing.T) {
	a, b, c := bf.Var("A"), bf.Var("B"), bf.Var("C")
	for _, tc := range []struct {
		in   string
		want bf.Formula
	}{
		{"A", a},
		{"!A", bf.Not(a)},
		{"A && B", bf.And(a, b)},
		{"A || B", bf.Or(a, b)},
		{"A && B || C", bf.Or(bf.And(a, b), c)},
		{"A && (B || C)", bf.And(a, bf.Or(b, c))},
		{"(A || B) && C", bf.And(bf.Or(a, b), c)},
		{"!(A && B)", bf.Not(bf.And(a, b))},
		{"defined(A)", a},
		{"defined (A)", a},
		{"defined A", a},
		{"defined(A) && !defined(B)", bf.And(a, bf.Not(b))},
		{"1", bf.True},
		{"0", bf.False},
		{"00", bf.False},
		{"42", bf.True},
		{"1L", bf.True},
	} {
		got, err := ParseCondition(tc.in)
		if err != nil {
			t.Errorf("ParseCondition(%q): %v", tc.in, err)
			continue
		}
		if !Equivalent(got, tc.want) {
			t.Errorf("ParseCondition(%q)=%v; want equivalent to %v", tc.in, got, tc.want)
		}
	}
}

func TestParseCondition_abstraction(t *testing.T) {
	// Non-propositional subexpressions collapse into one opaque variable
	// each, stable across occurrences of the same text.
	f1, err := ParseCondition("VERSION > 3 && defined(A)")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	f2, err := ParseCondition("VERSION > 3 && defined(A)")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	if !Equivalent(f1, f2) {
		t.Errorf("same abstracted condition parsed to inequivalent formulas")
	}
	// The abstracted atom is independent of the defined(A) conjunct.
	if !Satisfiable(bf.And(f1, bf.Not(bf.Var("A")))) {
		t.Errorf("abstracted atom unexpectedly entangled with A")
	}

	g, err := ParseCondition("FOO(X, Y) || B")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	if !Satisfiable(g) {
		t.Errorf("abstracted macro call formula unsatisfiable")
	}
}

func TestParseCondition_errors(t *testing.T) {
	for _, in := range []string{
		"",
		"A &&",
		"&& B",
		"A || ",
	} {
		if f, err := ParseCondition(in); err == nil {
			t.Errorf("ParseCondition(%q)=%v; want error", in, f)
		}
	}
}
