// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linegraph_test

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/macrodiff/macrodiff/difftree"
	"github.com/macrodiff/macrodiff/difftree/parse"
	"github.com/macrodiff/macrodiff/linegraph"
)

func mustParse(t *testing.T, source string, lines ...string) *difftree.DiffTree {
	t.Helper()
	tr, err := parse.FullDiff(strings.Join(lines, "\n"), parse.Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	tr.Source = source
	return tr
}

func TestExportTree(t *testing.T) {
	tr := mustParse(t, "main.c$$$abc123",
		" #if A",
		"+foo();",
		" #endif",
	)
	var buf bytes.Buffer
	stats, err := linegraph.ExportTree(&buf, tr, linegraph.ExportOptions{})
	if err != nil {
		t.Fatalf("ExportTree: %v", err)
	}
	want := strings.Join([]string{
		"t # main.c$$$abc123",
		"v 0 ROOT_NON 1 1 1 4 3 4 ",
		"v 1 IF_NON 1 1 1 3 2 3 A",
		"v 2 CODE_ADD 2 -1 2 3 -1 3 foo();",
		"e 0 1 ba",
		"e 1 2 a",
		"",
		"",
	}, "\n")
	if d := cmp.Diff(want, buf.String()); d != "" {
		t.Errorf("export (-want +got):\n%s", d)
	}
	if got := (linegraph.Stats{NonNodes: 2, AddNodes: 1, Trees: 1}); stats != got {
		t.Errorf("stats=%+v; want %+v", stats, got)
	}
}

func TestExportImport_roundTrip(t *testing.T) {
	trees := []*difftree.DiffTree{
		mustParse(t, "a.c$$$111",
			" #if A",
			"+foo();",
			" #else",
			"-bar();",
			" #endif",
		),
		mustParse(t, "b.c$$$222",
			" #if A",
			" #elif B",
			"+x",
			" #endif",
		),
	}
	var buf bytes.Buffer
	stats, err := linegraph.Export(&buf, trees, linegraph.ExportOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if stats.Trees != 2 {
		t.Fatalf("stats.Trees=%d; want 2", stats.Trees)
	}

	imported, err := linegraph.Import(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("Import=%d trees; want 2", len(imported))
	}

	// Re-exporting the imported trees reproduces the text byte for byte.
	var buf2 bytes.Buffer
	if _, err := linegraph.Export(&buf2, imported, linegraph.ExportOptions{}); err != nil {
		t.Fatalf("re-Export: %v", err)
	}
	if d := cmp.Diff(buf.String(), buf2.String()); d != "" {
		t.Errorf("round trip not stable (-first +second):\n%s", d)
	}

	// Condition formulas are reconstructed on import.
	for _, n := range imported[1].AnnotationNodes() {
		if n.NodeType == difftree.Else {
			continue
		}
		if n.Mapping == nil {
			t.Errorf("imported %v has no formula", n)
		}
	}
}

func TestExport_escapedLabels(t *testing.T) {
	tr, err := parse.FullDiff(" a", parse.Options{})
	if err != nil {
		t.Fatalf("FullDiff: %v", err)
	}
	tr.Source = "multi"
	tr.CodeNodes()[0].Label = "a\nb\\c"

	var buf bytes.Buffer
	if _, err := linegraph.ExportTree(&buf, tr, linegraph.ExportOptions{}); err != nil {
		t.Fatalf("ExportTree: %v", err)
	}
	if !strings.Contains(buf.String(), `a\nb\\c`) {
		t.Fatalf("label not escaped: %q", buf.String())
	}
	imported, err := linegraph.Import(&buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := imported[0].CodeNodes()[0].Label; got != "a\nb\\c" {
		t.Errorf("imported label=%q; want %q", got, "a\nb\\c")
	}
}

func TestExport_skipEmptyTrees(t *testing.T) {
	empty := difftree.New("empty")
	var buf bytes.Buffer
	stats, err := linegraph.Export(&buf, []*difftree.DiffTree{empty}, linegraph.ExportOptions{SkipEmptyTrees: true})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if stats.Trees != 0 || buf.Len() != 0 {
		t.Errorf("empty tree exported: trees=%d output=%q", stats.Trees, buf.String())
	}
}

func TestImport_errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
	}{
		{
			name: "node before header",
			in:   "v 0 ROOT_NON 1 1 1 2 2 2 \n",
		},
		{
			name: "no root",
			in:   "t # x\nv 1 CODE_NON 1 1 1 2 2 2 a\n",
		},
		{
			name: "disconnected node",
			in: strings.Join([]string{
				"t # x",
				"v 0 ROOT_NON 1 1 1 2 2 2 ",
				"v 1 CODE_NON 1 1 1 2 2 2 a",
				"",
			}, "\n"),
		},
		{
			name: "unknown node type",
			in:   "t # x\nv 0 ENDIF_NON 1 1 1 2 2 2 \n",
		},
		{
			name: "edge to unknown node",
			in: strings.Join([]string{
				"t # x",
				"v 0 ROOT_NON 1 1 1 2 2 2 ",
				"e 0 7 ba",
				"",
			}, "\n"),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if trees, err := linegraph.Import(strings.NewReader(tc.in)); err == nil {
				t.Errorf("Import succeeded with %d trees; want error", len(trees))
			}
		})
	}
}

func TestStats_merge(t *testing.T) {
	s := linegraph.Stats{NonNodes: 1, AddNodes: 2, RemNodes: 3, Trees: 1}
	s.Merge(linegraph.Stats{NonNodes: 10, AddNodes: 20, RemNodes: 30, Trees: 2})
	want := linegraph.Stats{NonNodes: 11, AddNodes: 22, RemNodes: 33, Trees: 3}
	if s != want {
		t.Errorf("Merge=%+v; want %+v", s, want)
	}
}

func TestCreateOpen_gzip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.lg", "packed.lg.gz"} {
		path := filepath.Join(dir, name)
		w, err := linegraph.Create(path)
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		if _, err := io.WriteString(w, "t # x\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		r, err := linegraph.Open(path)
		if err != nil {
			t.Fatalf("Open(%s): %v", name, err)
		}
		buf, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("close reader: %v", err)
		}
		if string(buf) != "t # x\n" {
			t.Errorf("%s round trip=%q; want %q", name, buf, "t # x\n")
		}
	}
}
