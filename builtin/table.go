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

// Package builtin is the process-wide, read-only Built-in Table: the
// enumerated mapping from operator atom to native callback and arity
// that the code generator resolves operators against.
package builtin

import "github.com/launix-de/lispjit/vm"

// Func is the contract every built-in observes: it receives the
// host-supplied evaluation stack and a read-only view of the owning
// region, and mutates the stack in place. Declarations are never called
// directly from emitted machine code — the generator resolves an
// operator to its Declaration at compile time and the compiled call
// site invokes it indirectly by index, through the single fixed,
// non-closure dispatch entry point jit.invokeBuiltin — so a Fn is free
// to be an ordinary closure over captured state (see arith.go's cmp,
// trace.go's OperatorTrace) without the raw call site needing to know
// anything about it.
type Func func(stack *vm.EvalStack, region vm.RegionAccessor)

// Declaration describes one entry of the Built-in Table.
type Declaration struct {
	Name  string
	Arity int
	Fn    Func
	Desc  string
}

var table = make(map[string]*Declaration)
var titles []string

func declare(d *Declaration) {
	table[d.Name] = d
	titles = append(titles, d.Name)
}

// Lookup resolves an operator atom to its Declaration.
func Lookup(name string) (*Declaration, bool) {
	d, ok := table[name]
	return d, ok
}

// Names returns the registered operator names in declaration order, for
// diagnostics such as a REPL's (help) listing.
func Names() []string {
	out := make([]string, len(titles))
	copy(out, titles)
	return out
}
