// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package parse builds diff trees from full unified diffs.
//
// The input is a hunk-free diff: every line of the file pair appears,
// prefixed with '+', '-' or ' '. The builder is a sequential state machine
// over that line stream. It keeps one stack of open conditional blocks per
// revision; a node unchanged between revisions is pushed onto both stacks,
// so the two nesting structures share node instances wherever the patch did
// not touch them. Parsing a malformed diff fails atomically: no partial
// tree is returned.
package parse

import (
	"bufio"
	"strings"

	"github.com/crillab/gophersat/bf"

	"github.com/macrodiff/macrodiff/difftree"
	"github.com/macrodiff/macrodiff/difftree/logic"
)

// Options configures one builder. The zero value parses every line into its
// own node and uses the built-in condition parser.
type Options struct {
	// CollapseMultipleCodeLines merges consecutive code lines of the same
	// diff type into a single code node.
	CollapseMultipleCodeLines bool
	// IgnoreEmptyLines skips blank lines entirely. Line counters still
	// advance for skipped lines.
	IgnoreEmptyLines bool
	// ParseFormula converts the condition text of a #if/#elif directive
	// into a formula. Defaults to logic.ParseCondition.
	ParseFormula func(string) (bf.Formula, error)
}

func (o Options) formulaParser() func(string) (bf.Formula, error) {
	if o.ParseFormula != nil {
		return o.ParseFormula
	}
	return logic.ParseCondition
}

// FullDiff parses the full diff of one patch into a tree.
// All returned failures are *difftree.ParseError values.
func FullDiff(fullDiff string, opts Options) (*difftree.DiffTree, error) {
	b := &builder{
		opts:  opts,
		parse: opts.formulaParser(),
		tree:  difftree.New(""),
	}
	root := b.tree.Root()
	root.From = difftree.DiffLineNumber{InDiff: 1, Before: 1, After: 1}
	b.beforeStack = []*difftree.DiffNode{root}
	b.afterStack = []*difftree.DiffNode{root}

	sc := bufio.NewScanner(strings.NewReader(fullDiff))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := b.consumeLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	return b.finish()
}

type builder struct {
	opts  Options
	parse func(string) (bf.Formula, error)

	tree        *difftree.DiffTree
	beforeStack []*difftree.DiffNode
	afterStack  []*difftree.DiffNode

	// lastCode is the one open code node, merged into by consecutive code
	// lines when collapsing is enabled.
	lastCode *difftree.DiffNode

	asm        macroAssembler
	lineNo     difftree.DiffLineNumber
	lastLineNo difftree.DiffLineNumber
}

func top(stack []*difftree.DiffNode) *difftree.DiffNode { return stack[len(stack)-1] }

// eachStack applies f to the stacks of the revisions a diff type exists in,
// before first.
func (b *builder) eachStack(d difftree.DiffType, f func(stack *[]*difftree.DiffNode) error) error {
	if d.ExistsBefore() {
		if err := f(&b.beforeStack); err != nil {
			return err
		}
	}
	if d.ExistsAfter() {
		if err := f(&b.afterStack); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) consumeLine(line string) error {
	d := difftree.DiffTypeOfLine(line)
	b.lastLineNo = b.lineNo
	b.lineNo.Step(d)

	if b.opts.IgnoreEmptyLines && isBlank(line) {
		return nil
	}

	handled, done := b.asm.consume(b.lineNo, line)
	if handled {
		b.closeCode(b.lastLineNo)
		for _, a := range done {
			if err := b.processLogical(a.text, a.diffType, a.from); err != nil {
				return err
			}
		}
		return nil
	}
	return b.processLogical(markerStripped(line), d, b.lineNo)
}

// processLogical dispatches one logical line: a physical diff line or an
// assembled multi-line directive.
func (b *builder) processLogical(text string, d difftree.DiffType, from difftree.DiffLineNumber) error {
	c, isDirective := classify(text)
	if !isDirective {
		return b.code(text, d, from)
	}

	b.closeCode(b.lastLineNo)
	switch c.nodeType {
	case difftree.Endif:
		return b.endif(text, d)
	case difftree.If, difftree.Elif, difftree.Else:
		return b.annotation(c, text, d, from)
	}
	return nil
}

func (b *builder) code(text string, d difftree.DiffType, from difftree.DiffLineNumber) error {
	if b.lastCode != nil {
		if b.opts.CollapseMultipleCodeLines && b.lastCode.DiffType == d {
			b.lastCode.Label += "\n" + text
			return nil
		}
		b.closeCode(b.lastLineNo)
	}
	n := b.tree.NewNode(d, difftree.Code, text, nil, from)
	b.tree.AddBelow(n, top(b.beforeStack).ID, top(b.afterStack).ID)
	b.lastCode = n
	return nil
}

func (b *builder) annotation(c classified, text string, d difftree.DiffType, from difftree.DiffLineNumber) error {
	var mapping bf.Formula
	if c.nodeType != difftree.Else {
		if c.cond == "" {
			return &difftree.ParseError{Kind: difftree.IllFormedAnnotation, Line: b.lineNo.InDiff, Text: text}
		}
		f, err := b.parse(c.cond)
		if err != nil {
			return &difftree.ParseError{Kind: difftree.IllFormedAnnotation, Line: b.lineNo.InDiff, Text: text}
		}
		mapping = f
	}

	n := b.tree.NewNode(d, c.nodeType, c.cond, mapping, from)
	b.tree.AddBelow(n, top(b.beforeStack).ID, top(b.afterStack).ID)

	return b.eachStack(d, func(stack *[]*difftree.DiffNode) error {
		if n.NodeType == difftree.Elif || n.NodeType == difftree.Else {
			if len(*stack) == 1 {
				return &difftree.ParseError{Kind: difftree.ElseOrElifWithoutIf, Line: b.lineNo.InDiff, Text: text}
			}
			if top(*stack).NodeType == difftree.Else {
				return &difftree.ParseError{Kind: difftree.ElseAfterElse, Line: b.lineNo.InDiff, Text: text}
			}
			// The new branch closes the previous one.
			endMacroBlock(top(*stack), b.lastLineNo, d)
		}
		*stack = append(*stack, n)
		return nil
	})
}

func (b *builder) endif(text string, d difftree.DiffType) error {
	// Endif nodes only finalize the span of the block they close; they are
	// never part of the tree.
	return b.eachStack(d, func(stack *[]*difftree.DiffNode) error {
		endMacroBlock(top(*stack), b.lastLineNo, d)
		popIf(stack)
		if len(*stack) == 0 {
			return &difftree.ParseError{Kind: difftree.EndifWithoutIf, Line: b.lineNo.InDiff, Text: text}
		}
		return nil
	})
}

// popIf pops entries until an If (or the root) has been popped, discarding
// the Elif/Else entries whose spans were already finalized when their
// successor branch opened.
func popIf(stack *[]*difftree.DiffNode) {
	for {
		popped := top(*stack)
		*stack = (*stack)[:len(*stack)-1]
		if popped.NodeType == difftree.If || popped.NodeType == difftree.Root {
			return
		}
	}
}

// closeCode finalizes the open code node, if any, with the given last line.
func (b *builder) closeCode(last difftree.DiffLineNumber) {
	if b.lastCode == nil {
		return
	}
	b.lastCode.To = last.Add(1)
	b.lastCode = nil
}

// endMacroBlock finalizes the span of an open annotation block. Only the
// coordinates touched by the closing line's diff type advance; the diff
// coordinate keeps the highest value ever seen so the span covers every
// line the block is involved in.
func endMacroBlock(block *difftree.DiffNode, last difftree.DiffLineNumber, d difftree.DiffType) {
	if d.ExistsBefore() {
		block.To.Before = last.Before + 1
	}
	if d.ExistsAfter() {
		block.To.After = last.After + 1
	}
	if last.InDiff+1 > block.To.InDiff {
		block.To.InDiff = last.InDiff + 1
	}
}

func (b *builder) finish() (*difftree.DiffTree, error) {
	if b.asm.pending() {
		return nil, &difftree.ParseError{Kind: difftree.IllFormedAnnotation, Line: b.lineNo.InDiff, Text: "diff ends inside a line continuation"}
	}
	if len(b.beforeStack) > 1 || len(b.afterStack) > 1 {
		return nil, &difftree.ParseError{Kind: difftree.UnclosedAnnotations, Line: b.lineNo.InDiff}
	}
	b.closeCode(b.lineNo)
	b.tree.Root().To = b.lineNo.Add(1)

	// A node's span is only meaningful in the coordinate systems of the
	// revisions it exists in.
	for _, n := range b.tree.Nodes() {
		n.From.Project(n.DiffType)
		n.To.Project(n.DiffType)
	}
	return b.tree, nil
}
