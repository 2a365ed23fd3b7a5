// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crillab/gophersat/bf"
)

// ParseCondition converts the condition text of a #if/#elif directive into
// a formula.
//
// Only the boolean structure is interpreted: &&, ||, !, parentheses and
// defined(X). Subexpressions the propositional world cannot express, such
// as arithmetic comparisons or macro calls, are abstracted into a single
// variable named after their text, so `A > 3 && defined(B)` becomes
// `A__3 and B`. Integer literals follow preprocessor truthiness: 0 is
// false, any other literal is true.
func ParseCondition(text string) (bf.Formula, error) {
	p := &condParser{input: text}
	f, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("trailing input %q in condition %q", p.input[p.pos:], text)
	}
	return f, nil
}

type condParser struct {
	input string
	pos   int
}

func (p *condParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *condParser) eat(op string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], op) {
		p.pos += len(op)
		return true
	}
	return false
}

func (p *condParser) parseOr() (bf.Formula, error) {
	f, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []bf.Formula{f}
	for p.eat("||") {
		g, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, g)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return bf.Or(terms...), nil
}

func (p *condParser) parseAnd() (bf.Formula, error) {
	f, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []bf.Formula{f}
	for p.eat("&&") {
		g, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, g)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return bf.And(terms...), nil
}

func (p *condParser) parseUnary() (bf.Formula, error) {
	// `!` binds a whole primary; `!=` inside an abstracted atom must stay
	// untouched, but at this position a comparison cannot start.
	if p.eat("!") {
		f, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return bf.Not(f), nil
	}
	return p.parsePrimary()
}

var definedRE = regexp.MustCompile(`^defined\s*\(?\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)?$`)
var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var intRE = regexp.MustCompile(`^[0-9]+[uUlL]*$`)

func (p *condParser) parsePrimary() (bf.Formula, error) {
	span := strings.TrimSpace(p.scanAtom())
	if span == "" {
		return nil, fmt.Errorf("empty operand in condition %q", p.input)
	}
	if inner, ok := parenthesized(span); ok {
		f, err := ParseCondition(inner)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	if m := definedRE.FindStringSubmatch(span); m != nil {
		return bf.Var(m[1]), nil
	}
	if intRE.MatchString(span) {
		if strings.Trim(span, "0uUlL") == "" && strings.Contains(span, "0") {
			return bf.False, nil
		}
		return bf.True, nil
	}
	if identRE.MatchString(span) {
		return bf.Var(span), nil
	}
	return bf.Var(abstract(span)), nil
}

// scanAtom consumes input up to the next top-level &&, || or closing paren.
// Parentheses inside the atom, e.g. macro call arguments, are balanced.
func (p *condParser) scanAtom() string {
	start := p.pos
	depth := 0
	for p.pos < len(p.input) {
		switch {
		case p.input[p.pos] == '(':
			depth++
		case p.input[p.pos] == ')':
			if depth == 0 {
				return p.input[start:p.pos]
			}
			depth--
		case depth == 0 && (strings.HasPrefix(p.input[p.pos:], "&&") || strings.HasPrefix(p.input[p.pos:], "||")):
			return p.input[start:p.pos]
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

// parenthesized reports whether span is one balanced parenthesized
// expression and returns its inside.
func parenthesized(span string) (string, bool) {
	if len(span) < 2 || span[0] != '(' || span[len(span)-1] != ')' {
		return "", false
	}
	depth := 0
	for i := 0; i < len(span); i++ {
		switch span[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(span)-1 {
				return "", false
			}
		}
	}
	if depth != 0 {
		return "", false
	}
	return span[1 : len(span)-1], true
}

// abstract names the variable standing in for a non-propositional
// subexpression.
func abstract(span string) string {
	var b strings.Builder
	for _, r := range span {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			// drop
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
