package rtl

import (
	"fmt"
	"strings"
)

// Printer renders the .rtl diagnostic dump: one GLOBAL line per global, then
// one labelled instruction per line per callable, in schedule order.
type Printer struct {
	out strings.Builder
}

func NewPrinter() *Printer { return &Printer{} }

// Print returns the textual dump of a linear-IR program.
func Print(prog *Program) string {
	p := NewPrinter()
	p.printProgram(prog)
	return p.out.String()
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.out.WriteString(fmt.Sprintf(format, args...))
	p.out.WriteString("\n")
}

func (p *Printer) printProgram(prog *Program) {
	for _, gv := range prog.Globals {
		p.writeLine("GLOBAL %s = %s : %s", gv.Name, gv.Init, gv.Type)
	}
	if len(prog.Globals) > 0 {
		p.writeLine("")
	}
	for _, cbl := range prog.Callables {
		p.printCallable(cbl)
		p.writeLine("")
	}
}

func (p *Printer) printCallable(cbl *Callable) {
	p.writeLine("CALLABLE %q:", cbl.Name)
	inputs := make([]string, len(cbl.Inputs))
	for n, in := range cbl.Inputs {
		inputs[n] = in.String()
	}
	p.writeLine("input(s): %s", strings.Join(inputs, " "))
	p.writeLine("enter: %s", cbl.Enter)
	p.writeLine("leave: %s", cbl.Leave)
	p.writeLine("----")
	for _, lab := range cbl.Schedule {
		p.writeLine("%s: %s", lab, cbl.Body[lab])
	}
	p.writeLine("END CALLABLE")
}

func (c *Callable) String() string {
	p := NewPrinter()
	p.printCallable(c)
	return p.out.String()
}
