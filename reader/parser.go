/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package reader is the textual-form collaborator: it turns source text
// into the Object tree the code generator consumes. It is not part of
// the core's test surface, but it is a real, wired package — the CLI
// has no other way to get a tree onto the core's doorstep.
package reader

import (
	"fmt"

	"github.com/launix-de/lispjit/vm"
)

// SourceInfo pins a parse error to a line and column of the source it
// came from, the same positional-context idiom the teacher's own
// tokenizer uses for its "expecting matching )" panics.
type SourceInfo struct {
	Source string
	Line   int
	Col    int
}

func (s SourceInfo) String() string {
	return fmt.Sprintf("%s:%d:%d", s.Source, s.Line, s.Col)
}

// ParseError is returned by Read on malformed input.
type ParseError struct {
	At  SourceInfo
	Msg string
}

func (e *ParseError) Error() string {
	return e.At.String() + ": " + e.Msg
}

type token struct {
	text string
	at   SourceInfo
}

// Read tokenizes and parses one top-level expression from s. source
// names the input for error messages only.
func Read(source, s string) (vm.Object, error) {
	tokens := tokenize(source, s)
	if len(tokens) == 0 {
		return vm.Object{}, &ParseError{At: SourceInfo{Source: source, Line: 1, Col: 1}, Msg: "empty input"}
	}
	obj, rest, err := parseExpr(tokens)
	if err != nil {
		return vm.Object{}, err
	}
	if len(rest) != 0 {
		return vm.Object{}, &ParseError{At: rest[0].at, Msg: "trailing input after top-level expression"}
	}
	return obj, nil
}

func parseExpr(tokens []token) (vm.Object, []token, error) {
	head := tokens[0]
	rest := tokens[1:]

	if head.text != "(" {
		if head.text == ")" {
			return vm.Object{}, nil, &ParseError{At: head.at, Msg: "unexpected )"}
		}
		return vm.NewAtom(head.text), rest, nil
	}

	if len(rest) == 0 {
		return vm.Object{}, nil, &ParseError{At: head.at, Msg: "expecting matching )"}
	}
	if rest[0].text == ")" {
		// () — a literal container with no operator and no children.
		return vm.NewList(""), rest[1:], nil
	}

	op := rest[0].text
	if op == "(" {
		return vm.Object{}, nil, &ParseError{At: rest[0].at, Msg: "operator position must be an atom, not a nested list"}
	}
	rest = rest[1:]

	var children []vm.Object
	for {
		if len(rest) == 0 {
			return vm.Object{}, nil, &ParseError{At: head.at, Msg: "expecting matching )"}
		}
		if rest[0].text == ")" {
			return vm.NewList(op, children...), rest[1:], nil
		}
		var child vm.Object
		var err error
		child, rest, err = parseExpr(rest)
		if err != nil {
			return vm.Object{}, nil, err
		}
		children = append(children, child)
	}
}

// tokenize splits s into parenthesis and atom tokens. Whitespace
// separates atoms; '(' and ')' are always their own token.
func tokenize(source, s string) []token {
	var out []token
	line, col := 1, 0
	start := -1

	flush := func(end int, atLine, atCol int) {
		if start >= 0 {
			out = append(out, token{text: s[start:end], at: SourceInfo{source, atLine, atCol}})
			start = -1
		}
	}

	atomStartLine, atomStartCol := 1, 1
	for i, ch := range s {
		if ch == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		switch {
		case ch == '(' || ch == ')':
			flush(i, atomStartLine, atomStartCol)
			out = append(out, token{text: string(ch), at: SourceInfo{source, line, col}})
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			flush(i, atomStartLine, atomStartCol)
		default:
			if start < 0 {
				start = i
				atomStartLine, atomStartCol = line, col
			}
		}
	}
	flush(len(s), atomStartLine, atomStartCol)
	return out
}
