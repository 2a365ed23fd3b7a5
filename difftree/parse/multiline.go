// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package parse

import (
	"strings"

	"github.com/macrodiff/macrodiff/difftree"
)

// pendingMacro buffers the pieces of one directive that is spread over
// multiple physical lines with backslash continuations.
type pendingMacro struct {
	parts    []string
	diffType difftree.DiffType
	from     difftree.DiffLineNumber
}

func (m *pendingMacro) clone() *pendingMacro {
	return &pendingMacro{parts: append([]string(nil), m.parts...), diffType: m.diffType, from: m.from}
}

func (m *pendingMacro) assemble() string {
	return strings.Join(m.parts, " ")
}

// assembled is one completed logical directive line handed back to the
// builder. Its from position is the first physical line of the macro; the
// builder's regular dispatch creates the node.
type assembled struct {
	text     string
	diffType difftree.DiffType
	from     difftree.DiffLineNumber
}

// macroAssembler merges backslash-continued directive lines into logical
// lines before classification. An unchanged macro is buffered once and
// shared by both revisions; when an edit diverges the continuations, the
// buffer splits into an independent before and after macro which complete
// separately.
type macroAssembler struct {
	before *pendingMacro
	after  *pendingMacro
}

func (a *macroAssembler) pending() bool {
	return a.before != nil || a.after != nil
}

// consume processes one physical diff line. handled reports that the line
// belonged to a multi-line macro; done carries any logical lines the
// physical line completed, before-revision first.
func (a *macroAssembler) consume(lineNo difftree.DiffLineNumber, line string) (handled bool, done []assembled) {
	d := difftree.DiffTypeOfLine(line)
	text := markerStripped(line)

	continued := a.sidesFor(d)
	if len(continued) == 0 {
		if isDirectiveStart(text) && continuesLine(text) {
			a.open(d, continuationText(text), lineNo)
			return true, nil
		}
		return false, nil
	}

	// A one-sided line cannot continue the shared buffer of an unchanged
	// macro start; the other revision keeps its own copy from here on.
	if d != difftree.Non && a.before == a.after {
		a.split()
		continued = a.sidesFor(d)
	}

	if continuesLine(text) {
		for _, m := range continued {
			m.parts = append(m.parts, continuationText(text))
		}
		return true, nil
	}

	for _, m := range continued {
		m.parts = append(m.parts, strings.TrimSpace(text))
		done = append(done, assembled{text: m.assemble(), diffType: m.diffType, from: m.from})
		if a.before == m {
			a.before = nil
		}
		if a.after == m {
			a.after = nil
		}
	}
	return true, done
}

// sidesFor returns the distinct pending macros a line of diff type d
// continues.
func (a *macroAssembler) sidesFor(d difftree.DiffType) []*pendingMacro {
	var ms []*pendingMacro
	if d.ExistsBefore() && a.before != nil {
		ms = append(ms, a.before)
	}
	if d.ExistsAfter() && a.after != nil && a.after != a.before {
		ms = append(ms, a.after)
	}
	return ms
}

func (a *macroAssembler) open(d difftree.DiffType, firstPart string, from difftree.DiffLineNumber) {
	m := &pendingMacro{parts: []string{firstPart}, diffType: d, from: from}
	if d.ExistsBefore() {
		a.before = m
	}
	if d.ExistsAfter() {
		a.after = m
	}
}

func (a *macroAssembler) split() {
	shared := a.before
	a.before = shared.clone()
	a.before.diffType = difftree.Rem
	a.after = shared.clone()
	a.after.diffType = difftree.Add
}
