// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package unidiff produces full diffs, i.e. unified diffs without any
// hunk headers in which every line of both revisions appears exactly
// once, prefixed with " ", "+" or "-". Full diffs are the input format
// of the tree parser.
package unidiff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	hunkHeaderRE = regexp.MustCompile(`^@@\s-(\d+).*\+(\d+).*@@`)
	lineSplitRE  = regexp.MustCompile(`\r\n|\r|\n`)
)

// noNewlineMarker is emitted by git when a revision lacks a trailing
// newline. It carries no content and is dropped during reconstruction.
const noNewlineMarker = `\ No newline at end of file`

// Reconstruct expands a hunk-based git diff of one file into a full diff
// by filling the gaps between hunks with context lines taken from the
// file's before revision.
func Reconstruct(beforeFile, gitDiff string) (string, error) {
	beforeLines := splitKeepTrailing(beforeFile)
	diffLines := lineSplitRE.Split(gitDiff, -1)
	for len(diffLines) > 0 && diffLines[len(diffLines)-1] == "" {
		diffLines = diffLines[:len(diffLines)-1]
	}

	beforeIndex := 0
	var full []string
	for _, diffLine := range diffLines {
		if m := hunkHeaderRE.FindStringSubmatch(diffLine); m != nil {
			var start int
			if _, err := fmt.Sscanf(m[1], "%d", &start); err != nil {
				return "", fmt.Errorf("hunk header %q: %w", diffLine, err)
			}
			// Line numbers start at 1.
			start--
			if start > len(beforeLines) {
				return "", fmt.Errorf("hunk header %q references line %d past the end of the before revision (%d lines)", diffLine, start+1, len(beforeLines))
			}
			for beforeIndex < start {
				full = append(full, " "+beforeLines[beforeIndex])
				beforeIndex++
			}
			continue
		}
		if diffLine == noNewlineMarker {
			continue
		}
		full = append(full, diffLine)
		if !strings.HasPrefix(diffLine, "+") {
			beforeIndex++
			if beforeIndex > len(beforeLines) {
				return "", fmt.Errorf("diff consumes more before lines than the before revision has (%d)", len(beforeLines))
			}
		}
	}
	for beforeIndex < len(beforeLines) {
		full = append(full, " "+beforeLines[beforeIndex])
		beforeIndex++
	}

	out := strings.Join(full, "\n")
	// Some diff producers leave byte order marks in odd places inside the
	// text. Strip them so line classification sees clean directives.
	return strings.ReplaceAll(out, "\uFEFF", ""), nil
}

// Compute builds a full diff directly from two file revisions using a
// line-granular text diff.
func Compute(before, after string) string {
	dmp := diffmatchpatch.New()
	c1, c2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(c1, c2, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			prefix = " "
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitChunk(d.Text) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// splitChunk splits a diff chunk into lines, dropping the final empty
// segment a trailing newline produces.
func splitChunk(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitKeepTrailing splits text into lines, keeping a final empty line
// when the text ends in a newline. Hunk gap filling needs the same line
// count git saw.
func splitKeepTrailing(s string) []string {
	return lineSplitRE.Split(s, -1)
}
