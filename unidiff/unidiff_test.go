// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package unidiff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/macrodiff/macrodiff/difftree/parse"
)

func TestReconstruct(t *testing.T) {
	before := "a\nb\nc\nd\n"
	gitDiff := strings.Join([]string{
		"@@ -2,2 +2,2 @@",
		" b",
		"-c",
		"+C",
	}, "\n")
	got, err := Reconstruct(before, gitDiff)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	want := strings.Join([]string{
		" a",
		" b",
		"-c",
		"+C",
		" d",
		" ",
	}, "\n")
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Reconstruct (-want +got):\n%s", d)
	}
}

func TestReconstruct_multipleHunks(t *testing.T) {
	before := "a\nb\nc\nd\ne\nf"
	gitDiff := strings.Join([]string{
		"@@ -1,2 +1,2 @@",
		" a",
		"-b",
		"+B",
		"@@ -5,2 +5,2 @@",
		" e",
		"-f",
		"+F",
	}, "\n")
	got, err := Reconstruct(before, gitDiff)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	want := strings.Join([]string{
		" a",
		"-b",
		"+B",
		" c",
		" d",
		" e",
		"-f",
		"+F",
	}, "\n")
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Reconstruct (-want +got):\n%s", d)
	}
}

func TestReconstruct_noNewlineMarker(t *testing.T) {
	before := "a"
	gitDiff := strings.Join([]string{
		"@@ -1 +1 @@",
		"-a",
		`\ No newline at end of file`,
		"+b",
		`\ No newline at end of file`,
	}, "\n")
	got, err := Reconstruct(before, gitDiff)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	want := "-a\n+b"
	if got != want {
		t.Errorf("Reconstruct=%q; want %q", got, want)
	}
}

func TestReconstruct_stripsBOM(t *testing.T) {
	before := "a\n\uFEFFb"
	gitDiff := "@@ -1 +1 @@\n-a\n+A"
	got, err := Reconstruct(before, gitDiff)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if strings.Contains(got, "\uFEFF") {
		t.Errorf("Reconstruct kept a BOM: %q", got)
	}
}

func TestReconstruct_badHunk(t *testing.T) {
	if _, err := Reconstruct("a\n", "@@ -9,1 +9,1 @@\n-x\n+y"); err == nil {
		t.Errorf("Reconstruct succeeded with a hunk past the end of the file")
	}
}

func TestCompute(t *testing.T) {
	for _, tc := range []struct {
		name          string
		before, after string
		want          string
	}{
		{
			name:   "replace line",
			before: "a\nb\nc\n",
			after:  "a\nx\nc\n",
			want:   " a\n-b\n+x\n c",
		},
		{
			name:   "append line",
			before: "a\n",
			after:  "a\nb\n",
			want:   " a\n+b",
		},
		{
			name:   "identical",
			before: "a\nb\n",
			after:  "a\nb\n",
			want:   " a\n b",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.before, tc.after)
			if d := cmp.Diff(tc.want, got); d != "" {
				t.Errorf("Compute (-want +got):\n%s", d)
			}
		})
	}
}

func TestCompute_outputParses(t *testing.T) {
	before := strings.Join([]string{
		"#if A",
		"old();",
		"#endif",
		"",
	}, "\n")
	after := strings.Join([]string{
		"#if A",
		"new();",
		"#endif",
		"",
	}, "\n")
	full := Compute(before, after)
	tr, err := parse.FullDiff(full, parse.Options{})
	if err != nil {
		t.Fatalf("FullDiff(%q): %v", full, err)
	}
	if got := len(tr.AnnotationNodes()); got != 1 {
		t.Errorf("annotations=%d; want 1", got)
	}
	if got := len(tr.CodeNodes()); got != 2 {
		t.Errorf("code nodes=%d; want 2", got)
	}
}
