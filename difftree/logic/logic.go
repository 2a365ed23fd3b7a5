// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logic answers satisfiability questions about the boolean formulas
// attached to diff tree nodes.
//
// Formulas are gophersat's bf.Formula values. This package treats the
// solver as an opaque decision procedure; everything downstream only needs
// SAT, tautology, implication and equivalence queries.
package logic

import "github.com/crillab/gophersat/bf"

// Satisfiable reports whether some variable assignment makes f true.
func Satisfiable(f bf.Formula) bool {
	return bf.Solve(f) != nil
}

// Tautology reports whether f holds under every variable assignment.
func Tautology(f bf.Formula) bool {
	return !Satisfiable(bf.Not(f))
}

// Implies reports whether a entails b.
func Implies(a, b bf.Formula) bool {
	return !Satisfiable(bf.And(a, bf.Not(b)))
}

// Equivalent reports whether a and b hold under exactly the same
// assignments.
func Equivalent(a, b bf.Formula) bool {
	return Tautology(bf.Eq(a, b))
}
