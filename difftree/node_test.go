// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package difftree

import "testing"

func TestDiffTypeOfLine(t *testing.T) {
	for _, tc := range []struct {
		line string
		want DiffType
	}{
		{"+x", Add},
		{"-x", Rem},
		{" x", Non},
		{"x", Non},
		{"", Non},
		{"+", Add},
	} {
		if got := DiffTypeOfLine(tc.line); got != tc.want {
			t.Errorf("DiffTypeOfLine(%q)=%v; want %v", tc.line, got, tc.want)
		}
	}
}

func TestDiffLineNumber_step(t *testing.T) {
	var l DiffLineNumber
	l.Step(Non)
	if want := (DiffLineNumber{InDiff: 1, Before: 1, After: 1}); l != want {
		t.Errorf("after NON: %v; want %v", l, want)
	}
	l.Step(Add)
	if want := (DiffLineNumber{InDiff: 2, Before: 1, After: 2}); l != want {
		t.Errorf("after ADD: %v; want %v", l, want)
	}
	l.Step(Rem)
	if want := (DiffLineNumber{InDiff: 3, Before: 2, After: 2}); l != want {
		t.Errorf("after REM: %v; want %v", l, want)
	}
}

func TestDiffLineNumber_project(t *testing.T) {
	for _, tc := range []struct {
		d    DiffType
		want DiffLineNumber
	}{
		{Non, DiffLineNumber{InDiff: 5, Before: 3, After: 4}},
		{Add, DiffLineNumber{InDiff: 5, Before: InvalidLine, After: 4}},
		{Rem, DiffLineNumber{InDiff: 5, Before: 3, After: InvalidLine}},
	} {
		l := DiffLineNumber{InDiff: 5, Before: 3, After: 4}
		l.Project(tc.d)
		if l != tc.want {
			t.Errorf("Project(%v)=%v; want %v", tc.d, l, tc.want)
		}
	}
}

func TestDiffType_exists(t *testing.T) {
	for _, tc := range []struct {
		d              DiffType
		before, after  bool
	}{
		{Non, true, true},
		{Add, false, true},
		{Rem, true, false},
	} {
		if got := tc.d.ExistsBefore(); got != tc.before {
			t.Errorf("%v.ExistsBefore()=%t; want %t", tc.d, got, tc.before)
		}
		if got := tc.d.ExistsAfter(); got != tc.after {
			t.Errorf("%v.ExistsAfter()=%t; want %t", tc.d, got, tc.after)
		}
		if got := tc.d.ExistsAt(Before); got != tc.before {
			t.Errorf("%v.ExistsAt(Before)=%t; want %t", tc.d, got, tc.before)
		}
		if got := tc.d.ExistsAt(After); got != tc.after {
			t.Errorf("%v.ExistsAt(After)=%t; want %t", tc.d, got, tc.after)
		}
	}
}
