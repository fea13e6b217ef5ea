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

package jit

import (
	"reflect"
	"testing"

	"github.com/launix-de/lispjit/builtin"
	"github.com/launix-de/lispjit/vm"
)

// tracedLookup mirrors cmd-level wiring: every resolved declaration is
// wrapped once with builtin.OperatorTrace and cached, so Options.Lookup
// can report evaluation order without decoding machine code.
func tracedLookup(t *builtin.Tracer) Lookup {
	cache := make(map[string]*builtin.Declaration)
	return func(name string) (*builtin.Declaration, bool) {
		if d, ok := cache[name]; ok {
			return d, true
		}
		d, ok := builtin.Lookup(name)
		if !ok {
			return nil, false
		}
		traced := builtin.OperatorTrace(d, t)
		cache[name] = traced
		return traced, true
	}
}

func TestCompile_EvaluationOrderIsPostOrder(t *testing.T) {
	tracer := builtin.NewTracer()
	tree := vm.NewList("*", vm.NewList("+", atom(1), atom(2)), vm.NewList("+", atom(3), atom(4)))
	region, err := CompileWith(tree, Options{Lookup: tracedLookup(tracer)})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer region.Close()
	if _, err := region.Invoke(); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	want := []string{"+", "+", "*"}
	got := tracer.Log()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("evaluation order = %v, want %v (children before parent, left before right)", got, want)
	}
}

func TestCompile_RDIRSIPreservedAcrossCalls(t *testing.T) {
	// A deeply left-nested tree forces several chained indirect calls;
	// if RDI/RSI leaked between built-in invocations the stack-pointer
	// argument itself would drift and every later push would land in
	// the wrong place, corrupting the final result.
	tree := vm.NewList("+", atom(1), atom(2))
	for i := int64(3); i <= 20; i++ {
		tree = vm.NewList("+", tree, atom(i))
	}
	region, err := Compile(tree)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer region.Close()
	result, err := region.Invoke()
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	// sum 1..20 = 210
	if result.Atom != "210" {
		t.Errorf("sum 1..20 = %q, want \"210\"", result.Atom)
	}
}

func TestCompile_PrologueAndEpilogueFramePointer(t *testing.T) {
	region, err := Compile(vm.NewList("+", atom(1), atom(2)))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer region.Close()
	code := region.mapping[:region.codeLen]
	// The prologue opens with two register MOVs (mov rdi, rax; mov rsi,
	// rbx) that translate the incoming ABIInternal argument registers
	// into the RDI/RSI convention the rest of the emitted body assumes,
	// before the usual push rbp; mov rbp, rsp.
	wantPrologue := []byte{0x48, 0x89, 0xC7, 0x48, 0x89, 0xDE, 0x55}
	if len(code) < len(wantPrologue) {
		t.Fatalf("code too short for prologue: % x", code)
	}
	for i, b := range wantPrologue {
		if code[i] != b {
			t.Errorf("prologue byte %d = %02x, want %02x (full prologue: % x)", i, code[i], b, code[:minInt(len(code), 12)])
			break
		}
	}
	if code[len(code)-1] != 0xC3 { // ret
		t.Errorf("epilogue does not end with ret: % x", code[maxInt(0, len(code)-8):])
	}
	if len(code) >= 2 && code[len(code)-2] != 0x5D { // pop rbp
		t.Errorf("epilogue does not restore rbp before ret: % x", code[maxInt(0, len(code)-8):])
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
