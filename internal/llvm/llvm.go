package llvm

import (
	"fmt"
	"strings"
)

// LLVM textual assembly, one Line per emitted line. A Line stores a template
// with `d (destination), `t (type) and `a0, `a1, ... (positional argument)
// markers that String expands. Only the constructors below build Lines, so
// every emitted opcode shape lives in this file.

type Line struct {
	Dest string
	Type string
	Args []string
	tmpl string
}

func newLine(dest, typ string, args []string, tmpl string) *Line {
	return &Line{Dest: dest, Type: typ, Args: args, tmpl: tmpl}
}

// String expands the template markers from the line's fields.
func (l *Line) String() string {
	var out strings.Builder
	s := l.tmpl
	for i := 0; i < len(s); i++ {
		if s[i] != '`' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'd':
			out.WriteString(l.Dest)
		case 't':
			out.WriteString(l.Type)
		case 'a':
			n := 0
			for i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
				i++
				n = n*10 + int(s[i]-'0')
			}
			if n < len(l.Args) {
				out.WriteString(l.Args[n])
			}
		default:
			out.WriteByte('`')
			out.WriteByte(s[i])
		}
	}
	return out.String()
}

// Directive emits a raw line, e.g. a function's closing brace.
func Directive(text string) *Line {
	return newLine("", "", nil, text)
}

// SetLabel opens the basic block named L<id>.
func SetLabel(id int) *Line {
	return newLine("", "", nil, fmt.Sprintf("L%d:", id))
}

// arith builds the shared binary-arithmetic shape; mnemonics that can wrap
// carry the nsw hint.
func arith(mnemonic string, nsw bool, dest, typ, a0, a1 string) *Line {
	hint := ""
	if nsw {
		hint = " nsw"
	}
	return newLine(dest, typ, []string{a0, a1},
		fmt.Sprintf("\t%%`d = %s%s `t `a0, `a1", mnemonic, hint))
}

func Add(dest, typ, a0, a1 string) *Line { return arith("add", true, dest, typ, a0, a1) }
func Sub(dest, typ, a0, a1 string) *Line { return arith("sub", true, dest, typ, a0, a1) }
func Mul(dest, typ, a0, a1 string) *Line { return arith("mul", true, dest, typ, a0, a1) }

func Udiv(dest, typ, a0, a1 string) *Line { return arith("udiv", false, dest, typ, a0, a1) }
func Srem(dest, typ, a0, a1 string) *Line { return arith("srem", false, dest, typ, a0, a1) }
func Shl(dest, typ, a0, a1 string) *Line  { return arith("shl", false, dest, typ, a0, a1) }
func Ashr(dest, typ, a0, a1 string) *Line { return arith("ashr", false, dest, typ, a0, a1) }
func And(dest, typ, a0, a1 string) *Line  { return arith("and", false, dest, typ, a0, a1) }
func Or(dest, typ, a0, a1 string) *Line   { return arith("or", false, dest, typ, a0, a1) }
func Xor(dest, typ, a0, a1 string) *Line  { return arith("xor", false, dest, typ, a0, a1) }

// icmp builds an integer comparison producing an i1.
func icmp(cond, dest, typ, a0, a1 string) *Line {
	return newLine(dest, typ, []string{a0, a1},
		fmt.Sprintf("\t%%`d = icmp %s `t `a0, `a1", cond))
}

func Eq(dest, typ, a0, a1 string) *Line  { return icmp("eq", dest, typ, a0, a1) }
func Ne(dest, typ, a0, a1 string) *Line  { return icmp("ne", dest, typ, a0, a1) }
func Sgt(dest, typ, a0, a1 string) *Line { return icmp("sgt", dest, typ, a0, a1) }
func Sge(dest, typ, a0, a1 string) *Line { return icmp("sge", dest, typ, a0, a1) }
func Slt(dest, typ, a0, a1 string) *Line { return icmp("slt", dest, typ, a0, a1) }
func Sle(dest, typ, a0, a1 string) *Line { return icmp("sle", dest, typ, a0, a1) }

// Load reads a named global through an opaque pointer.
func Load(dest, typ, global string) *Line {
	return newLine(dest, typ, nil,
		fmt.Sprintf("\t%%`d = load `t, ptr @%s, align 8", global))
}

// Store writes a value to a named global.
func Store(typ, src, global string) *Line {
	return newLine("", typ, []string{src},
		fmt.Sprintf("\tstore `t `a0, ptr @%s, align 8", global))
}

// BrCond branches on an i1 condition to two labelled blocks.
func BrCond(cond, thenLabel, elseLabel string) *Line {
	return newLine(cond, "", nil,
		fmt.Sprintf("\tbr i1 %%`d, label %%%s, label %%%s", thenLabel, elseLabel))
}

// BrUncond jumps to a labelled block.
func BrUncond(label string) *Line {
	return newLine("", "", nil, fmt.Sprintf("\tbr label %%%s", label))
}

// Call invokes @fn. When dest is empty the result is discarded (or void).
func Call(dest, fn, typ string, args []string) *Line {
	var tmpl strings.Builder
	tmpl.WriteString("\t")
	if dest != "" {
		tmpl.WriteString("%`d = ")
	}
	fmt.Fprintf(&tmpl, "call `t @%s(", fn)
	for n := range args {
		if n > 0 {
			tmpl.WriteString(", ")
		}
		fmt.Fprintf(&tmpl, "i64 `a%d", n)
	}
	tmpl.WriteString(")")
	return newLine(dest, typ, args, tmpl.String())
}

// Define opens a function definition; the body lines follow, then a closing
// brace Directive.
func Define(name, typ string, params []string) *Line {
	var tmpl strings.Builder
	tmpl.WriteString("define `t @`d(")
	for n := range params {
		if n > 0 {
			tmpl.WriteString(", ")
		}
		fmt.Fprintf(&tmpl, "i64 `a%d", n)
	}
	tmpl.WriteString(") {")
	return newLine(name, typ, params, tmpl.String())
}

func RetVoid() *Line {
	return newLine("", "", nil, "\tret void")
}

func RetType(typ, arg string) *Line {
	return newLine("", typ, []string{arg}, "\tret `t `a0")
}

// Phi merges incoming values; pairs holds (value, predecessor label) in
// predecessor order.
func Phi(dest, typ string, pairs [][2]string) *Line {
	var tmpl strings.Builder
	args := make([]string, 0, len(pairs))
	tmpl.WriteString("\t%`d = phi `t ")
	for n, pair := range pairs {
		if n > 0 {
			tmpl.WriteString(", ")
		}
		fmt.Fprintf(&tmpl, "[ `a%d, %%%s ]", n, pair[1])
		args = append(args, pair[0])
	}
	return newLine(dest, typ, args, tmpl.String())
}

// GlobalWithValue declares an initialized global.
func GlobalWithValue(name, typ string, imm int64) *Line {
	return newLine(name, typ, nil,
		fmt.Sprintf("@`d = global `t %d, align 8", imm))
}

// GlobalNoValue declares a zero-initialized global.
func GlobalNoValue(name, typ string) *Line {
	return newLine(name, typ, nil, "@`d = global `t 0, align 8")
}

// Declare announces an external function the runtime provides.
func Declare(name, typ string, paramCount int) *Line {
	var tmpl strings.Builder
	tmpl.WriteString("declare `t @`d(")
	for n := 0; n < paramCount; n++ {
		if n > 0 {
			tmpl.WriteString(", ")
		}
		tmpl.WriteString("i64")
	}
	tmpl.WriteString(")")
	return newLine(name, typ, nil, tmpl.String())
}
