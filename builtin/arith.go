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

package builtin

import (
	"strconv"

	"github.com/launix-de/lispjit/vm"
)

// popInt pops the top of the stack and parses it as a signed decimal
// integer. Atoms reach the evaluation stack only as decimal strings
// (see the open question on numeric atoms in the design notes); a
// malformed atom is a runtime TypeError, never a compile-time failure.
func popInt(stack *vm.EvalStack, op string) int64 {
	o := stack.Pop()
	n, err := strconv.ParseInt(o.Atom, 10, 64)
	if err != nil {
		panic(&vm.RuntimeError{Kind: vm.TypeError, Msg: op + ": not an integer atom: " + o.Atom})
	}
	return n
}

func pushInt(stack *vm.EvalStack, n int64) {
	stack.Push(vm.NewAtom(strconv.FormatInt(n, 10)))
}

func init() {
	declare(&Declaration{
		Name: "+", Arity: 2, Desc: "pops two integer atoms, pushes their sum",
		Fn: func(stack *vm.EvalStack, region vm.RegionAccessor) {
			b := popInt(stack, "+")
			a := popInt(stack, "+")
			pushInt(stack, a+b)
		},
	})
	declare(&Declaration{
		Name: "-", Arity: 2, Desc: "pops two integer atoms, pushes their difference",
		Fn: func(stack *vm.EvalStack, region vm.RegionAccessor) {
			b := popInt(stack, "-")
			a := popInt(stack, "-")
			pushInt(stack, a-b)
		},
	})
	declare(&Declaration{
		Name: "*", Arity: 2, Desc: "pops two integer atoms, pushes their product",
		Fn: func(stack *vm.EvalStack, region vm.RegionAccessor) {
			b := popInt(stack, "*")
			a := popInt(stack, "*")
			pushInt(stack, a*b)
		},
	})
	declare(&Declaration{
		Name: "<", Arity: 2,
		Fn: cmp(func(a, b int64) bool { return a < b }),
	})
	declare(&Declaration{
		Name: "<=", Arity: 2,
		Fn: cmp(func(a, b int64) bool { return a <= b }),
	})
	declare(&Declaration{
		Name: ">", Arity: 2,
		Fn: cmp(func(a, b int64) bool { return a > b }),
	})
	declare(&Declaration{
		Name: ">=", Arity: 2,
		Fn: cmp(func(a, b int64) bool { return a >= b }),
	})
}

// cmp builds a comparison built-in from a predicate over two parsed
// integers, the same factory shape memcp's alu.go uses for <, <=, >, >=.
func cmp(pred func(a, b int64) bool) Func {
	return func(stack *vm.EvalStack, region vm.RegionAccessor) {
		b := popInt(stack, "compare")
		a := popInt(stack, "compare")
		if pred(a, b) {
			stack.Push(vm.NewAtom("1"))
		} else {
			stack.Push(vm.NewAtom("0"))
		}
	}
}
