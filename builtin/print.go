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
	"fmt"
	"io"
	"os"

	"github.com/launix-de/lispjit/printer"
	"github.com/launix-de/lispjit/vm"
)

// Output is the process-wide textual sink print writes to, matching the
// rest of this codebase's habit of going straight to stdout rather than
// through a logging abstraction. Tests redirect it with SetOutput.
var Output io.Writer = os.Stdout

// SetOutput redirects Output and returns the previous sink, so a test
// can defer builtin.SetOutput(restore).
func SetOutput(w io.Writer) io.Writer {
	prev := Output
	Output = w
	return prev
}

func init() {
	declare(&Declaration{
		Name: "print", Arity: 1,
		Desc: "prints the top of stack in external textual form, leaves it in place",
		Fn: func(stack *vm.EvalStack, region vm.RegionAccessor) {
			fmt.Fprintln(Output, printer.Sprint(stack.Top()))
		},
	})
}
