// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package parse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/macrodiff/macrodiff/difftree"
)

// nodeInfo is the flattened view of one non-root node used to compare
// parsed trees against expectations.
type nodeInfo struct {
	Node   string
	Label  string
	From   [3]int // indiff, before, after
	To     [3]int
	Before string // parent in the before revision
	After  string // parent in the after revision
}

func dump(tr *difftree.DiffTree) []nodeInfo {
	var out []nodeInfo
	tr.Walk(func(n *difftree.DiffNode) error {
		if n.IsRoot() {
			return nil
		}
		out = append(out, nodeInfo{
			Node:   fmt.Sprintf("%s_%s", n.NodeType, n.DiffType),
			Label:  n.Label,
			From:   [3]int{n.From.InDiff, n.From.Before, n.From.After},
			To:     [3]int{n.To.InDiff, n.To.Before, n.To.After},
			Before: parentKey(tr, n.Parent(difftree.Before)),
			After:  parentKey(tr, n.Parent(difftree.After)),
		})
		return nil
	})
	return out
}

func parentKey(tr *difftree.DiffTree, id difftree.NodeID) string {
	p := tr.Node(id)
	switch {
	case p == nil:
		return "-"
	case p.IsRoot():
		return "ROOT"
	}
	return fmt.Sprintf("%s:%s", p.NodeType, p.Label)
}

func diff(lines ...string) string {
	return strings.Join(lines, "\n")
}

func TestFullDiff_addedAnnotation(t *testing.T) {
	tr, err := FullDiff(diff(
		"+#if FOO",
		"+#endif",
	), Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	want := []nodeInfo{
		{
			Node:  "IF_ADD",
			Label: "FOO",
			From:  [3]int{1, -1, 1},
			To:    [3]int{2, -1, 2},
			Before: "-",
			After:  "ROOT",
		},
	}
	if d := cmp.Diff(want, dump(tr)); d != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", d)
	}
	root := tr.Root()
	if got, want := root.To, (difftree.DiffLineNumber{InDiff: 3, Before: 1, After: 3}); got != want {
		t.Errorf("root.To=%v; want %v", got, want)
	}
	if err := tr.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestFullDiff_ifElse(t *testing.T) {
	tr, err := FullDiff(diff(
		" #if A",
		"+foo();",
		" #else",
		"-bar();",
		" #endif",
	), Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	want := []nodeInfo{
		{
			Node:  "IF_NON",
			Label: "A",
			From:  [3]int{1, 1, 1},
			To:    [3]int{3, 2, 3},
			Before: "ROOT",
			After:  "ROOT",
		},
		{
			Node:  "ELSE_NON",
			From:  [3]int{3, 2, 3},
			To:    [3]int{5, 4, 4},
			Before: "IF:A",
			After:  "IF:A",
		},
		{
			Node:  "CODE_REM",
			Label: "bar();",
			From:  [3]int{4, 3, -1},
			To:    [3]int{5, 4, -1},
			Before: "ELSE:",
			After:  "-",
		},
		{
			Node:  "CODE_ADD",
			Label: "foo();",
			From:  [3]int{2, -1, 2},
			To:    [3]int{3, -1, 3},
			Before: "-",
			After:  "IF:A",
		},
	}
	if d := cmp.Diff(want, dump(tr)); d != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", d)
	}
	if got, want := tr.Root().To, (difftree.DiffLineNumber{InDiff: 6, Before: 5, After: 5}); got != want {
		t.Errorf("root.To=%v; want %v", got, want)
	}
	if err := tr.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestFullDiff_errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		want difftree.DiffError
	}{
		{
			name: "endif without if",
			in:   " #endif",
			want: difftree.EndifWithoutIf,
		},
		{
			name: "else without if",
			in:   " #else",
			want: difftree.ElseOrElifWithoutIf,
		},
		{
			name: "elif without if",
			in:   " #elif B",
			want: difftree.ElseOrElifWithoutIf,
		},
		{
			name: "else after else",
			in: diff(
				" #if A",
				" #else",
				" #else",
				" #endif",
			),
			want: difftree.ElseAfterElse,
		},
		{
			name: "unclosed if",
			in:   " #if A",
			want: difftree.UnclosedAnnotations,
		},
		{
			name: "unclosed one-sided endif",
			in: diff(
				" #if A",
				"-#endif",
			),
			want: difftree.UnclosedAnnotations,
		},
		{
			name: "if without condition",
			in: diff(
				" #if",
				" #endif",
			),
			want: difftree.IllFormedAnnotation,
		},
		{
			name: "unterminated continuation",
			in:   ` #if defined(A) && \`,
			want: difftree.IllFormedAnnotation,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := FullDiff(tc.in, Options{})
			if err == nil {
				t.Fatalf("FullDiff succeeded with %d nodes; want %v", tr.Count(), tc.want)
			}
			kind, ok := difftree.ErrorKind(err)
			if !ok || kind != tc.want {
				t.Errorf("FullDiff error %v (kind %q); want kind %q", err, kind, tc.want)
			}
		})
	}
}

func TestFullDiff_collapseCodeLines(t *testing.T) {
	tr, err := FullDiff(diff(
		" a",
		" b",
		"+c",
	), Options{CollapseMultipleCodeLines: true})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	want := []nodeInfo{
		{
			Node:  "CODE_NON",
			Label: "a\nb",
			From:  [3]int{1, 1, 1},
			To:    [3]int{3, 3, 3},
			Before: "ROOT",
			After:  "ROOT",
		},
		{
			Node:  "CODE_ADD",
			Label: "c",
			From:  [3]int{3, -1, 3},
			To:    [3]int{4, -1, 4},
			Before: "-",
			After:  "ROOT",
		},
	}
	if d := cmp.Diff(want, dump(tr)); d != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", d)
	}
}

func TestFullDiff_ignoreEmptyLines(t *testing.T) {
	in := diff(
		" a",
		" ",
		" b",
	)
	tr, err := FullDiff(in, Options{IgnoreEmptyLines: true})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	if got, want := len(tr.CodeNodes()), 2; got != want {
		t.Errorf("CodeNodes=%d; want %d", got, want)
	}
	// Skipped lines still advance the counters.
	if got, want := tr.Root().To, (difftree.DiffLineNumber{InDiff: 4, Before: 4, After: 4}); got != want {
		t.Errorf("root.To=%v; want %v", got, want)
	}

	tr, err = FullDiff(in, Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	if got, want := len(tr.CodeNodes()), 3; got != want {
		t.Errorf("CodeNodes=%d; want %d", got, want)
	}
}

func TestFullDiff_multilineMacro(t *testing.T) {
	tr, err := FullDiff(diff(
		` #if defined(A) && \`,
		` defined(B)`,
		" x",
		" #endif",
	), Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	want := []nodeInfo{
		{
			Node:  "IF_NON",
			Label: "defined(A) && defined(B)",
			From:  [3]int{1, 1, 1},
			To:    [3]int{4, 4, 4},
			Before: "ROOT",
			After:  "ROOT",
		},
		{
			Node:  "CODE_NON",
			Label: "x",
			From:  [3]int{3, 3, 3},
			To:    [3]int{4, 4, 4},
			Before: "IF:defined(A) && defined(B)",
			After:  "IF:defined(A) && defined(B)",
		},
	}
	if d := cmp.Diff(want, dump(tr)); d != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", d)
	}
}

func TestFullDiff_editedMultilineMacro(t *testing.T) {
	tr, err := FullDiff(diff(
		` #if defined(A) && \`,
		`-    defined(B)`,
		`+    defined(C)`,
		" #endif",
	), Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	want := []nodeInfo{
		{
			Node:  "IF_REM",
			Label: "defined(A) && defined(B)",
			From:  [3]int{1, 1, -1},
			To:    [3]int{4, 2, -1},
			Before: "ROOT",
			After:  "-",
		},
		{
			Node:  "IF_ADD",
			Label: "defined(A) && defined(C)",
			From:  [3]int{1, -1, 1},
			To:    [3]int{4, -1, 3},
			Before: "-",
			After:  "ROOT",
		},
	}
	if d := cmp.Diff(want, dump(tr)); d != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", d)
	}
	if err := tr.Verify(); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestFullDiff_elifChain(t *testing.T) {
	tr, err := FullDiff(diff(
		" #if A",
		" #elif B",
		" #else",
		" x",
		" #endif",
	), Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	// The construct is a parent chain: else below elif below if.
	var got []string
	tr.Walk(func(n *difftree.DiffNode) error {
		got = append(got, fmt.Sprintf("%s:%s", n.NodeType, parentKey(tr, n.Parent(difftree.Before))))
		return nil
	})
	want := []string{
		"ROOT:-",
		"IF:ROOT",
		"ELIF:IF:A",
		"ELSE:ELIF:B",
		"CODE:ELSE:",
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("construct chain mismatch (-want +got):\n%s", d)
	}
}

func TestFullDiff_ifdefCanonicalization(t *testing.T) {
	for _, tc := range []struct {
		in   string
		cond string
	}{
		{" #ifdef FOO", "defined(FOO)"},
		{" #ifndef FOO", "!defined(FOO)"},
		{" # if FOO // enables foo", "FOO"},
		{" #if FOO /* block */", "FOO"},
	} {
		tr, err := FullDiff(diff(tc.in, " #endif"), Options{})
		if err != nil {
			t.Fatalf("FullDiff(%q): %v", tc.in, err)
		}
		anns := tr.AnnotationNodes()
		if len(anns) != 1 {
			t.Fatalf("FullDiff(%q): %d annotations; want 1", tc.in, len(anns))
		}
		if got := anns[0].Label; got != tc.cond {
			t.Errorf("FullDiff(%q) condition=%q; want %q", tc.in, got, tc.cond)
		}
	}
}
