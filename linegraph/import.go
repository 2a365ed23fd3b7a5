// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package linegraph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/crillab/gophersat/bf"

	"github.com/macrodiff/macrodiff/difftree"
	"github.com/macrodiff/macrodiff/difftree/logic"
)

// Import reads linegraph text back into trees. Each tree must contain
// exactly one root record; every other node must be connected by at least
// one edge.
func Import(r io.Reader) ([]*difftree.DiffTree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var trees []*difftree.DiffTree
	var cur *treeReader
	flush := func() error {
		if cur == nil {
			return nil
		}
		t, err := cur.finish()
		if err != nil {
			return err
		}
		trees = append(trees, t)
		cur = nil
		return nil
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "t # "):
			if err := flush(); err != nil {
				return nil, err
			}
			cur = newTreeReader(strings.TrimPrefix(line, "t # "))
		case strings.HasPrefix(line, "v "):
			if cur == nil {
				return nil, fmt.Errorf("linegraph line %d: node record before tree header", lineNo)
			}
			if err := cur.addNode(line); err != nil {
				return nil, fmt.Errorf("linegraph line %d: %w", lineNo, err)
			}
		case strings.HasPrefix(line, "e "):
			if cur == nil {
				return nil, fmt.Errorf("linegraph line %d: edge record before tree header", lineNo)
			}
			if err := cur.addEdge(line); err != nil {
				return nil, fmt.Errorf("linegraph line %d: %w", lineNo, err)
			}
		case strings.TrimSpace(line) == "":
			// Blank delimiter.
		default:
			return nil, fmt.Errorf("linegraph line %d: unrecognized record %q", lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return trees, nil
}

type treeReader struct {
	tree  *difftree.DiffTree
	nodes map[int]*difftree.DiffNode
	// connected tracks which nodes received at least one edge.
	connected map[int]bool
	rootSeen  bool
}

func newTreeReader(source string) *treeReader {
	return &treeReader{
		tree:      difftree.New(source),
		nodes:     make(map[int]*difftree.DiffNode),
		connected: make(map[int]bool),
	}
}

func (tr *treeReader) addNode(line string) error {
	fields := strings.SplitN(line, " ", 10)
	if len(fields) < 9 {
		return fmt.Errorf("node record %q has %d fields, want at least 9", line, len(fields))
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("node id %q: %w", fields[1], err)
	}
	nodeType, diffType, err := parseTypeTag(fields[2])
	if err != nil {
		return err
	}
	var span [6]int
	for i := range span {
		span[i], err = strconv.Atoi(fields[3+i])
		if err != nil {
			return fmt.Errorf("span field %q: %w", fields[3+i], err)
		}
	}
	label := ""
	if len(fields) == 10 {
		label = unescapeLabel(fields[9])
	}

	var n *difftree.DiffNode
	if nodeType == difftree.Root {
		if tr.rootSeen {
			return fmt.Errorf("second root node %d", id)
		}
		tr.rootSeen = true
		n = tr.tree.Root()
		n.Label = label
	} else {
		from := difftree.DiffLineNumber{InDiff: span[0], Before: span[1], After: span[2]}
		var mapping bf.Formula
		if nodeType == difftree.If || nodeType == difftree.Elif {
			mapping, err = logic.ParseCondition(label)
			if err != nil {
				return fmt.Errorf("condition of node %d: %w", id, err)
			}
		}
		n = tr.tree.NewNode(diffType, nodeType, label, mapping, from)
	}
	n.From = difftree.DiffLineNumber{InDiff: span[0], Before: span[1], After: span[2]}
	n.To = difftree.DiffLineNumber{InDiff: span[3], Before: span[4], After: span[5]}
	tr.nodes[id] = n
	return nil
}

func (tr *treeReader) addEdge(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return fmt.Errorf("edge record %q has %d fields, want 4", line, len(fields))
	}
	parentID, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("edge parent %q: %w", fields[1], err)
	}
	childID, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("edge child %q: %w", fields[2], err)
	}
	parent, ok := tr.nodes[parentID]
	if !ok {
		return fmt.Errorf("edge references unknown parent %d", parentID)
	}
	child, ok := tr.nodes[childID]
	if !ok {
		return fmt.Errorf("edge references unknown child %d", childID)
	}
	before, after := difftree.NoNode, difftree.NoNode
	switch fields[3] {
	case "b":
		before = parent.ID
	case "a":
		after = parent.ID
	case "ba":
		before, after = parent.ID, parent.ID
	default:
		return fmt.Errorf("edge revision tag %q", fields[3])
	}
	tr.tree.AddBelow(child, before, after)
	tr.connected[childID] = true
	return nil
}

func (tr *treeReader) finish() (*difftree.DiffTree, error) {
	if !tr.rootSeen {
		return nil, fmt.Errorf("tree %q has no root node", tr.tree.Source)
	}
	for id, n := range tr.nodes {
		if n.IsRoot() {
			continue
		}
		if !tr.connected[id] {
			return nil, fmt.Errorf("tree %q: node %d is not connected", tr.tree.Source, id)
		}
	}
	if err := tr.tree.Verify(); err != nil {
		return nil, err
	}
	return tr.tree, nil
}

func parseTypeTag(tag string) (difftree.NodeType, difftree.DiffType, error) {
	i := strings.LastIndex(tag, "_")
	if i < 0 {
		return 0, 0, fmt.Errorf("node type tag %q", tag)
	}
	var nodeType difftree.NodeType
	switch tag[:i] {
	case "ROOT":
		nodeType = difftree.Root
	case "IF":
		nodeType = difftree.If
	case "ELIF":
		nodeType = difftree.Elif
	case "ELSE":
		nodeType = difftree.Else
	case "CODE":
		nodeType = difftree.Code
	default:
		return 0, 0, fmt.Errorf("node type %q", tag[:i])
	}
	var diffType difftree.DiffType
	switch tag[i+1:] {
	case "ADD":
		diffType = difftree.Add
	case "REM":
		diffType = difftree.Rem
	case "NON":
		diffType = difftree.Non
	default:
		return 0, 0, fmt.Errorf("diff type %q", tag[i+1:])
	}
	return nodeType, diffType, nil
}
