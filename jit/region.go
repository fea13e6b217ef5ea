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
	"syscall"
	"unsafe"

	"github.com/launix-de/lispjit/builtin"
	"github.com/launix-de/lispjit/vm"
)

// Region is the Executable Memory Region: a page-aligned read+execute
// mapping holding finished code, plus the immediates table it owns by
// shared lifetime. Non-copyable; pass by pointer.
type Region struct {
	mapping    []byte // the mmap'd pages, still PROT_READ|PROT_EXEC after NewRegion returns
	codeLen    int
	immediates []vm.Object
	builtins   []*builtin.Declaration
	entry      func(stack *vm.EvalStack, region *Region)
}

// NewRegion allocates a page-aligned mapping sized to the next page
// boundary, copies code into its prefix, flips it read+execute, and
// retains immediates and the resolved built-in declarations by
// ownership. It never widens permissions back to writable once flipped
// (§3's "Executable Memory Region" invariant).
func NewRegion(code []byte, immediates []vm.Object, builtins []*builtin.Declaration) (*Region, error) {
	page := syscall.Getpagesize()
	if page <= 0 {
		return nil, &vm.CompileError{Kind: vm.OSResourceError, Msg: "could not determine page size"}
	}
	n := (len(code) + page - 1) &^ (page - 1)
	if n == 0 {
		n = page
	}

	mapping, err := syscall.Mmap(-1, 0, n, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, &vm.CompileError{Kind: vm.OSResourceError, Msg: "mmap failed: " + err.Error()}
	}
	copy(mapping, code)

	if err := syscall.Mprotect(mapping, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		syscall.Munmap(mapping)
		return nil, &vm.CompileError{Kind: vm.PermissionError, Msg: "mprotect failed: " + err.Error()}
	}

	r := &Region{mapping: mapping, codeLen: len(code), immediates: immediates, builtins: builtins}
	r.entry = makeTrampoline(&mapping[0])
	return r, nil
}

// makeTrampoline reinterprets the first byte of the executable mapping
// as a callable Go function value, the same closure-shape trick
// memcp's OptimizeForValues uses to turn a raw code pointer into a
// func(...Scmer) Scmer: a func value is itself just a pointer to a
// pointer to code, so wrapping &code[0] in that shape and reinterpreting
// it as the target func type produces a callable value.
//
// Calling the resulting value the ordinary way, as Invoke does below,
// goes through Go's register-based ABIInternal convention rather than
// the System V convention the hand-written prologue in codegen.go used
// to assume: on amd64 the first two integer/pointer arguments of an
// ABIInternal call arrive in RAX and RBX, not RDI and RSI. The emitted
// prologue now opens with two register-to-register MOVs that copy
// RAX/RBX into RDI/RSI before anything else runs, establishing the
// RDI/RSI convention the rest of the emitted code and emitIndirectCall
// actually rely on internally.
func makeTrampoline(code *byte) func(stack *vm.EvalStack, region *Region) {
	fn := unsafe.Pointer(&struct{ code *byte }{code})
	return *(*func(stack *vm.EvalStack, region *Region))(unsafe.Pointer(&fn))
}

// Invoke calls into the region with a fresh, empty evaluation stack and
// returns the single surviving element. A stack size other than one
// element on return is a protocol violation (§4.1). A built-in that
// panics (a malformed atom, an out-of-range immediate index) is
// recovered here and reported as a returned error, the same
// panic/recover-at-the-boundary idiom memcp's jitCompileExprBody uses
// around a compiled call.
func (r *Region) Invoke() (result vm.Object, err error) {
	stack := vm.NewEvalStack()
	defer func() {
		if rec := recover(); rec != nil {
			if rerr, ok := rec.(error); ok {
				err = rerr
				return
			}
			err = &vm.RuntimeError{Kind: vm.RuntimeStackInvariantError, Msg: "panic during invocation"}
		}
	}()
	r.entry(stack, r)
	if stack.Len() != 1 {
		return vm.Object{}, &vm.RuntimeError{Kind: vm.RuntimeStackInvariantError,
			Msg: "evaluation stack held more or fewer than one element on return"}
	}
	return stack.Top(), nil
}

// Immediate returns the i-th entry of the immediates table. Bounds
// violations here are a codegen bug, not a user-reachable condition,
// since the compiler only ever emits indices it itself allocated.
func (r *Region) Immediate(i uint32) (vm.Object, error) {
	if int(i) >= len(r.immediates) {
		return vm.Object{}, &vm.RuntimeError{Kind: vm.RuntimeStackInvariantError,
			Msg: "immediate index out of range"}
	}
	return r.immediates[i], nil
}

// Close releases the mapping. Regions are non-copyable; once closed,
// Invoke must not be called again.
func (r *Region) Close() error {
	return syscall.Munmap(r.mapping)
}

// pushImmediate is the hidden built-in: push_immediate(stack, region, index).
// It is the sole path by which literal atoms reach the runtime stack.
// Like invokeBuiltin below, it is a plain top-level function with no
// captured state, so a raw CALL into its ABIInternal entry point needs
// no closure-context register.
func pushImmediate(stack *vm.EvalStack, region *Region, index uint32) {
	o, err := region.Immediate(index)
	if err != nil {
		panic(err)
	}
	stack.Push(o)
}

// pushImmediateAddr is the code pointer the generator embeds as an
// immediate operand ahead of every literal's CALL site.
var pushImmediateAddr = reflect.ValueOf(pushImmediate).Pointer()

// invokeBuiltin is the single, fixed dispatch entry point every
// compiled operator call site targets. A built-in declaration's own Fn
// may be an arbitrary Go closure (arith.go's cmp, trace.go's
// OperatorTrace both capture free variables), and safely calling an
// arbitrary closure from hand-emitted machine code would require
// marshaling a closure-context register the generator has no way to
// derive from a bare code address. Routing every call site through
// this one plain, non-closure function instead means the raw CALL
// only ever has to reach an ABIInternal entry point with no closure
// context of its own; once control is here, the lookup and the actual
// call to decl.Fn happen as ordinary Go code, which the compiler
// marshals correctly regardless of what Fn captures.
func invokeBuiltin(stack *vm.EvalStack, region *Region, index uint32) {
	if int(index) >= len(region.builtins) {
		panic(&vm.RuntimeError{Kind: vm.RuntimeStackInvariantError, Msg: "built-in index out of range"})
	}
	region.builtins[index].Fn(stack, region)
}

// invokeBuiltinAddr is the code pointer every operator call site calls
// through; the generator never embeds a built-in's own Fn pointer.
var invokeBuiltinAddr = reflect.ValueOf(invokeBuiltin).Pointer()
