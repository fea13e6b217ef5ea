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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/chzyer/readline"

	"github.com/launix-de/lispjit/builtin"
	"github.com/launix-de/lispjit/jit"
	"github.com/launix-de/lispjit/printer"
	"github.com/launix-de/lispjit/reader"
)

// workaround for flags package to allow multiple values
type arrayFlags []string

func (i *arrayFlags) String() string {
	return "dummy"
}

func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

func main() {
	fmt.Print(`lispjit Copyright (C) 2026  Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;

`)

	var commands arrayFlags
	flag.Var(&commands, "c", "compile and run one expression")
	trace := flag.Bool("trace", false, "record operator invocation order and print it after each run")
	flag.Parse()
	files := flag.Args()

	var tracer *builtin.Tracer
	var opts jit.Options
	if *trace {
		tracer = builtin.NewTracer()
		opts.Lookup = tracedLookup(tracer)
	}

	ran := false
	for _, src := range commands {
		ran = true
		runOne("-c", src, opts, tracer)
	}
	for _, path := range files {
		ran = true
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		runOne(path, string(content), opts, tracer)
	}

	if !ran {
		repl(opts, tracer)
	}
}

// tracedLookup wraps every Built-in Table entry with builtin.OperatorTrace
// so -trace can report the evaluation order of a run without decoding
// the emitted machine code.
func tracedLookup(t *builtin.Tracer) jit.Lookup {
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

func runOne(label, src string, opts jit.Options, tracer *builtin.Tracer) {
	obj, err := reader.Read(label, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	region, err := jit.CompileWith(obj, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer region.Close()
	result, err := region.Invoke()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(printer.Sprint(result))
	if tracer != nil {
		fmt.Fprintln(os.Stderr, "trace:", tracer.Log())
	}
}

const newprompt = "\033[32m>\033[0m "
const contprompt = "\033[32m.\033[0m "
const resultprompt = "\033[31m=\033[0m "

func repl(opts jit.Options, tracer *builtin.Tracer) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".lispjit-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	oldline := ""
	for {
		line, err := l.Readline()
		line = oldline + line
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if line == "" {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Println("panic:", r, string(debug.Stack()))
					oldline = ""
					l.SetPrompt(newprompt)
				}
			}()

			obj, err := reader.Read("repl", line)
			if err != nil {
				if pe, ok := err.(*reader.ParseError); ok && pe.Msg == "expecting matching )" {
					oldline = line + "\n"
					l.SetPrompt(contprompt)
					return
				}
				fmt.Println(err)
				oldline = ""
				l.SetPrompt(newprompt)
				return
			}
			region, err := jit.CompileWith(obj, opts)
			if err != nil {
				fmt.Println(err)
				oldline = ""
				l.SetPrompt(newprompt)
				return
			}
			result, err := region.Invoke()
			region.Close()
			if err != nil {
				fmt.Println(err)
				oldline = ""
				l.SetPrompt(newprompt)
				return
			}
			fmt.Print(resultprompt)
			fmt.Println(printer.Sprint(result))
			if tracer != nil {
				fmt.Println("trace:", tracer.Log())
			}
			oldline = ""
			l.SetPrompt(newprompt)
		}()
	}
}
