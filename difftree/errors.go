// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package difftree

import (
	"errors"
	"fmt"
)

// DiffError classifies the ways a diff can be rejected as user data.
// A rejected diff aborts the parse of that diff only; batch tooling records
// the failure and continues with sibling patches.
type DiffError string

const (
	// IllFormedAnnotation is malformed directive text or a diff that ends
	// in the middle of a line continuation.
	IllFormedAnnotation DiffError = "ill-formed annotation"
	// ElseOrElifWithoutIf is an #else or #elif with no enclosing #if.
	ElseOrElifWithoutIf DiffError = "else or elif without if"
	// ElseAfterElse is a second #else in one conditional construct.
	ElseAfterElse DiffError = "else after else"
	// EndifWithoutIf is an #endif with no open conditional block.
	EndifWithoutIf DiffError = "endif without if"
	// UnclosedAnnotations is a diff that ends with open conditional blocks.
	UnclosedAnnotations DiffError = "unclosed annotations"
)

// ParseError is the structured failure for one diff.
type ParseError struct {
	Kind DiffError
	// Line is the 1-based position in the diff text, 0 if unknown.
	Line int
	// Text is the offending diff line, if any.
	Text string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return string(e.Kind)
	}
	if e.Text == "" {
		return fmt.Sprintf("%s at diff line %d", e.Kind, e.Line)
	}
	return fmt.Sprintf("%s at diff line %d: %q", e.Kind, e.Line, e.Text)
}

// ErrorKind extracts the DiffError classification from err, if any.
func ErrorKind(err error) (DiffError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// ErrInconsistent marks internal-consistency violations: a formula requested
// for a parentless non-root node, an unexpected node type inside a
// transformation, a broken parent chain. These indicate a builder or
// transformation bug, never bad user data, and must propagate as hard
// failures.
var ErrInconsistent = errors.New("inconsistent diff tree")
