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
	"math"

	"github.com/launix-de/lispjit/builtin"
	"github.com/launix-de/lispjit/vm"
)

// maxCodeBytes bounds a single contiguous mapping; exceeding it is a
// CapacityError rather than a silent multi-region split (§4.5: "total
// emitted code length ≤ what a single contiguous mapping can hold").
const maxCodeBytes = 16 << 20

// Lookup resolves an operator name to its Built-in Table entry. The
// zero value of Options uses builtin.Lookup; tests substitute a table
// that wraps declarations with builtin.OperatorTrace.
type Lookup func(name string) (*builtin.Declaration, bool)

// Options configures a single Compile call.
type Options struct {
	Lookup Lookup
}

// frame is one level of the explicit traversal stack. cursor indexes
// the next child to inspect; entering/iterating/finishing (§4.5) map
// onto cursor == 0, 0 < cursor < len(Children), and cursor == len(Children).
type frame struct {
	list   vm.Object
	cursor int
}

// Compile builds an Executable Memory Region from an Object tree,
// implementing the non-recursive post-order traversal of §4.5.
func Compile(root vm.Object) (*Region, error) {
	return CompileWith(root, Options{})
}

func CompileWith(root vm.Object, opts Options) (*Region, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = builtin.Lookup
	}

	if !root.IsCall() {
		return nil, &vm.CompileError{Kind: vm.UnknownOperatorError, Op: root.Op,
			Msg: "root must be a list with a non-empty operator"}
	}

	e := NewEmitter()
	// Region.entry is invoked as an ordinary Go func value (region.go's
	// Invoke), which the compiler marshals through the register-based
	// ABIInternal convention: the first two pointer arguments arrive in
	// RAX and RBX, not RDI/RSI. The rest of the emitted body — and
	// emitIndirectCall below — depends on RDI/RSI holding the stack and
	// region pointers, so the prologue establishes that first.
	e.EmitMovRegReg(RDI, RAX)
	e.EmitMovRegReg(RSI, RBX)
	e.EmitPushReg(RBP)
	e.EmitMovRegReg(RBP, RSP)
	e.PushDepthDelta(1)

	var immediates []vm.Object
	var builtins []*builtin.Declaration
	stack := []*frame{{list: root}}

	for {
		cur := stack[len(stack)-1]

		if cur.cursor >= len(cur.list.Children) {
			decl, ok := lookup(cur.list.Op)
			if !ok {
				return nil, &vm.CompileError{Kind: vm.UnknownOperatorError, Op: cur.list.Op,
					Msg: "operator not in built-in table"}
			}
			if len(cur.list.Children) != decl.Arity {
				return nil, &vm.CompileError{Kind: vm.ArityMismatchError, Op: decl.Name,
					Msg: "arity mismatch"}
			}
			if uint64(len(builtins)) >= uint64(math.MaxUint32) {
				return nil, &vm.CompileError{Kind: vm.ImmediatesOverflowError,
					Msg: "built-in reference table exceeds 2^32-1 entries"}
			}
			bidx := uint32(len(builtins))
			builtins = append(builtins, decl)
			e.emitIndirectCall(uint64(invokeBuiltinAddr), &bidx)

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			stack[len(stack)-1].cursor++
			continue
		}

		child := cur.list.Children[cur.cursor]
		if child.IsCall() {
			stack = append(stack, &frame{list: child})
			continue
		}

		if uint64(len(immediates)) >= uint64(math.MaxUint32) {
			return nil, &vm.CompileError{Kind: vm.ImmediatesOverflowError,
				Msg: "immediates table exceeds 2^32-1 entries"}
		}
		idx := uint32(len(immediates))
		immediates = append(immediates, child)
		e.emitIndirectCall(uint64(pushImmediateAddr), &idx)
		cur.cursor++
	}

	e.EmitPopReg(RBP)
	e.PushDepthDelta(-1)
	e.EmitRet()
	e.ResolveFixups()

	if len(e.Bytes()) > maxCodeBytes {
		return nil, &vm.CompileError{Kind: vm.CapacityError,
			Msg: "emitted code exceeds the single-mapping bound"}
	}

	return NewRegion(e.Bytes(), immediates, builtins)
}

// emitIndirectCall emits the save/call/restore sequence required by
// §4.4: RDI and RSI hold the stack and region pointers across the
// whole of the emitted body and must survive this sequence regardless
// of what the callee does to any register, since Go's ABIInternal
// makes no promise that a call leaves anything but the stack itself
// intact; RSP is 16-byte aligned at the CALL itself. indexArg, when
// non-nil, is the built-in or immediate-table index the callee expects
// as its third argument.
//
// Every targetAddr this is called with (invokeBuiltinAddr,
// pushImmediateAddr) names a plain, non-closure, three-argument Go
// function: func(*vm.EvalStack, *Region, uint32). Under amd64
// ABIInternal the first three integer/pointer arguments of such a
// function arrive in RAX, RBX and RCX in that order, so the sequence
// below loads fresh copies of the RDI/RSI convention into RAX/RBX and
// the index into RCX immediately before the call, and reserves R11 —
// unused by a three-argument callee — to hold the call target itself,
// since RAX is no longer free for that once it carries the first
// argument.
func (e *Emitter) emitIndirectCall(targetAddr uint64, indexArg *uint32) {
	needsPad := e.DepthParity() == 0
	if needsPad {
		e.EmitSubRspImm8(8)
		e.PushDepthDelta(1)
	}
	e.EmitPushReg(RDI)
	e.PushDepthDelta(1)
	e.EmitPushReg(RSI)
	e.PushDepthDelta(1)

	e.EmitMovRegReg(RAX, RDI)
	e.EmitMovRegReg(RBX, RSI)
	if indexArg != nil {
		e.EmitMovRegImm64(RCX, uint64(*indexArg))
	}
	e.EmitMovRegImm64(R11, targetAddr)
	e.EmitCallReg(R11)

	e.EmitPopReg(RSI)
	e.PushDepthDelta(-1)
	e.EmitPopReg(RDI)
	e.PushDepthDelta(-1)
	if needsPad {
		e.EmitAddRspImm8(8)
		e.PushDepthDelta(-1)
	}
}
