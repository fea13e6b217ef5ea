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
	"testing"
	"testing/quick"

	"github.com/launix-de/lispjit/vm"
)

func run2(fn Func, a, b int64) int64 {
	s := vm.NewEvalStack()
	s.Push(vm.NewAtom(strconv.FormatInt(a, 10)))
	s.Push(vm.NewAtom(strconv.FormatInt(b, 10)))
	fn(s, nil)
	n, err := strconv.ParseInt(s.Top().Atom, 10, 64)
	if err != nil {
		panic(err)
	}
	return n
}

func TestAdd_Commutative(t *testing.T) {
	plus, _ := Lookup("+")
	f := func(a, b int32) bool {
		return run2(plus.Fn, int64(a), int64(b)) == run2(plus.Fn, int64(b), int64(a))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestAdd_AssociativeViaNesting(t *testing.T) {
	plus, _ := Lookup("+")
	f := func(a, b, c int16) bool {
		left := run2(plus.Fn, int64(a), run2(plus.Fn, int64(b), int64(c)))
		right := run2(plus.Fn, run2(plus.Fn, int64(a), int64(b)), int64(c))
		return left == right
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestArith_ConcreteScenarios(t *testing.T) {
	plus, _ := Lookup("+")
	mul, _ := Lookup("*")

	if got := run2(plus.Fn, 1, 2); got != 3 {
		t.Errorf("(+ 1 2) = %d, want 3", got)
	}
	nested := run2(plus.Fn, 4, 5)
	if got := run2(mul.Fn, 3, nested); got != 27 {
		t.Errorf("(* 3 (+ 4 5)) = %d, want 27", got)
	}
}

func TestArith_TypeErrorOnMalformedAtom(t *testing.T) {
	plus, _ := Lookup("+")
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for non-integer atom")
		}
		rerr, ok := r.(*vm.RuntimeError)
		if !ok || rerr.Kind != vm.TypeError {
			t.Fatalf("got %#v, want *vm.RuntimeError{Kind: TypeError}", r)
		}
	}()
	s := vm.NewEvalStack()
	s.Push(vm.NewAtom("notanumber"))
	s.Push(vm.NewAtom("1"))
	plus.Fn(s, nil)
}

func TestCompare_Operators(t *testing.T) {
	cases := []struct {
		name    string
		a, b    int64
		want    string
	}{
		{"<", 1, 2, "1"},
		{"<", 2, 1, "0"},
		{">=", 3, 3, "1"},
		{">=", 2, 3, "0"},
	}
	for _, c := range cases {
		decl, ok := Lookup(c.name)
		if !ok {
			t.Fatalf("missing built-in %q", c.name)
		}
		s := vm.NewEvalStack()
		s.Push(vm.NewAtom(strconv.FormatInt(c.a, 10)))
		s.Push(vm.NewAtom(strconv.FormatInt(c.b, 10)))
		decl.Fn(s, nil)
		if got := s.Top().Atom; got != c.want {
			t.Errorf("(%s %d %d) = %q, want %q", c.name, c.a, c.b, got, c.want)
		}
	}
}
