// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package parse

import (
	"regexp"
	"strings"

	"github.com/macrodiff/macrodiff/difftree"
)

var (
	directiveRE    = regexp.MustCompile(`^\s*#\s*(ifdef|ifndef|if|elif|else|endif)\b\s*(.*)$`)
	lineCommentRE  = regexp.MustCompile(`//.*$`)
	blockCommentRE = regexp.MustCompile(`/\*.*?\*/`)
)

// classified is the outcome of the line classifier for one logical line,
// already stripped of its diff marker.
type classified struct {
	nodeType difftree.NodeType
	// cond is the canonical condition expression for If/Elif nodes, e.g.
	// `defined(X)` for `#ifdef X`. Empty for all other node types.
	cond string
}

// classify categorizes the text of one logical diff line into a conditional
// directive or code. It is a pure function; the blank-line policy and the
// diff-marker handling live in the builder.
func classify(text string) (classified, bool) {
	m := directiveRE.FindStringSubmatch(text)
	if m == nil {
		return classified{nodeType: difftree.Code}, false
	}
	rest := strings.TrimSpace(blockCommentRE.ReplaceAllString(lineCommentRE.ReplaceAllString(m[2], ""), ""))
	switch m[1] {
	case "if":
		return classified{nodeType: difftree.If, cond: rest}, true
	case "ifdef":
		return classified{nodeType: difftree.If, cond: "defined(" + rest + ")"}, true
	case "ifndef":
		return classified{nodeType: difftree.If, cond: "!defined(" + rest + ")"}, true
	case "elif":
		return classified{nodeType: difftree.Elif, cond: rest}, true
	case "else":
		return classified{nodeType: difftree.Else}, true
	case "endif":
		return classified{nodeType: difftree.Endif}, true
	}
	return classified{nodeType: difftree.Code}, false
}

// isDirectiveStart reports whether the text could open a preprocessor
// directive, used to decide if a trailing backslash starts a multi-line
// macro rather than continuing a code line.
func isDirectiveStart(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "#")
}

// isBlank reports whether a diff line carries no content besides its
// change marker.
func isBlank(line string) bool {
	if line == "" {
		return true
	}
	return strings.TrimSpace(line[1:]) == ""
}

// markerStripped returns the line without its leading diff marker.
func markerStripped(line string) string {
	if line == "" {
		return ""
	}
	return line[1:]
}

// continuesLine reports whether the physical line ends in a backslash line
// continuation.
func continuesLine(text string) bool {
	return strings.HasSuffix(strings.TrimRight(text, " \t"), `\`)
}

// continuationText strips the trailing backslash from a continued line.
func continuationText(text string) string {
	t := strings.TrimRight(text, " \t")
	return strings.TrimSpace(strings.TrimSuffix(t, `\`))
}
