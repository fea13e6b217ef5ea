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

// Package printer renders an Object in its external textual form, the
// collaborator the core's print built-in calls out to.
package printer

import (
	"strings"

	"github.com/launix-de/lispjit/vm"
)

// Sprint renders o the way a reader of this language would write it
// back out: an Atom prints verbatim, a List prints as a parenthesized
// expression with its operator first.
func Sprint(o vm.Object) string {
	if o.Kind == vm.KindAtom {
		return o.Atom
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(o.Op)
	for _, c := range o.Children {
		b.WriteByte(' ')
		b.WriteString(Sprint(c))
	}
	b.WriteByte(')')
	return b.String()
}
