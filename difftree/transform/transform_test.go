// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package transform

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/macrodiff/macrodiff/difftree"
)

// fake is a test transformer recording execution order.
type fake struct {
	kind Kind
	deps []Kind
	ran  *[]Kind
}

func (f fake) Kind() Kind   { return f.kind }
func (f fake) Deps() []Kind { return f.deps }
func (f fake) Transform(*difftree.DiffTree) error {
	*f.ran = append(*f.ran, f.kind)
	return nil
}

func TestApply_dependencyOrder(t *testing.T) {
	var ran []Kind
	err := Apply(difftree.New("test"),
		fake{kind: KindRelabel, deps: []Kind{KindCollapseNested}, ran: &ran},
		fake{kind: KindCollapseNested, deps: []Kind{KindCutNonEdited}, ran: &ran},
		fake{kind: KindCutNonEdited, ran: &ran},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []Kind{KindCutNonEdited, KindCollapseNested, KindRelabel}
	if d := cmp.Diff(want, ran); d != "" {
		t.Errorf("execution order (-want +got):\n%s", d)
	}
}

func TestApply_missingPrerequisite(t *testing.T) {
	err := Apply(difftree.New("test"), CollapseNestedNonEditedMacros())
	if err == nil {
		t.Fatalf("Apply succeeded without the prerequisite")
	}
	if !strings.Contains(err.Error(), "was not requested") {
		t.Errorf("Apply error %q; want missing-prerequisite error", err)
	}
}

func TestApply_duplicate(t *testing.T) {
	err := Apply(difftree.New("test"), CutNonEditedSubtrees(), CutNonEditedSubtrees())
	if err == nil {
		t.Fatalf("Apply succeeded with a duplicated transformation")
	}
	if !strings.Contains(err.Error(), "twice") {
		t.Errorf("Apply error %q; want duplicate error", err)
	}
}

func TestApply_cycle(t *testing.T) {
	var ran []Kind
	err := Apply(difftree.New("test"),
		fake{kind: KindCutNonEdited, deps: []Kind{KindRelabel}, ran: &ran},
		fake{kind: KindRelabel, deps: []Kind{KindCutNonEdited}, ran: &ran},
	)
	if err == nil {
		t.Fatalf("Apply succeeded with a dependency cycle")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("Apply error %q; want cycle error", err)
	}
}
