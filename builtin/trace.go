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
	"sync"

	"github.com/launix-de/lispjit/vm"
)

// Tracer records the order in which operators were invoked during one
// compiled run. Tests use it to assert the "evaluation order" property
// without parsing emitted machine code; main.go's -trace flag uses it to
// report the order of a run.
type Tracer struct {
	m   sync.Mutex
	log []string
}

func NewTracer() *Tracer {
	return &Tracer{}
}

func (t *Tracer) record(name string) {
	t.m.Lock()
	t.log = append(t.log, name)
	t.m.Unlock()
}

// Log returns the recorded operator names in call order.
func (t *Tracer) Log() []string {
	t.m.Lock()
	defer t.m.Unlock()
	out := make([]string, len(t.log))
	copy(out, t.log)
	return out
}

// OperatorTrace wraps d so every invocation of its Fn is recorded onto
// t before running unchanged. The wrapped declaration keeps d's name
// and arity; traced declarations reach the code generator through an
// Options.Lookup (the tests' and main.go's tracedLookup) and are never
// registered into the production Built-in Table.
func OperatorTrace(d *Declaration, t *Tracer) *Declaration {
	inner := d.Fn
	return &Declaration{
		Name:  d.Name,
		Arity: d.Arity,
		Desc:  d.Desc,
		Fn: func(stack *vm.EvalStack, region vm.RegionAccessor) {
			t.record(d.Name)
			inner(stack, region)
		},
	}
}
