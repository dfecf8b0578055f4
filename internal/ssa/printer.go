package ssa

import (
	"fmt"
	"strings"
)

// Printer renders the .ssa diagnostic dump: globals, then each callable's
// blocks in schedule order, each block showing its instructions followed by
// its out-labels. Printing is deterministic; printing twice is byte-identical.
type Printer struct {
	out strings.Builder
}

func NewPrinter() *Printer { return &Printer{} }

// Print returns the textual dump of an SSA program.
func Print(prog *Program) string {
	p := NewPrinter()
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
	return p.out.String()
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.out.WriteString(fmt.Sprintf(format, args...))
	p.out.WriteString("\n")
}

func (p *Printer) printCallable(cbl *Callable) {
	p.writeLine("CALLABLE %q:", cbl.Name)
	inputs := make([]string, len(cbl.Inputs))
	for n, in := range cbl.Inputs {
		inputs[n] = in.String()
	}
	p.writeLine("input(s): %s", strings.Join(inputs, " "))
	p.writeLine("enter: %s", cbl.Enter)
	p.writeLine("----")
	for _, lab := range cbl.Schedule {
		p.printBlock(lab.String(), cbl.Body[lab])
	}
	p.writeLine("END CALLABLE")
}

func (p *Printer) printBlock(label string, block *BBlock) {
	p.writeLine("%s:", label)
	for _, instr := range block.Body {
		p.writeLine("\t%s", instr)
	}
	outs := make([]string, len(block.Out))
	for n, out := range block.Out {
		outs[n] = out.String()
	}
	p.writeLine("\tleave: %s", strings.Join(outs, ", "))
}

func (c *Callable) String() string {
	p := NewPrinter()
	p.printCallable(c)
	return p.out.String()
}
