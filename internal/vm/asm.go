// Package vm parses and executes the subset of x86-64 NASM that the code
// generator emits, so compiled programs can be checked without an
// assembler or linker.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/you-not-fish/qxc/internal/rtabi"
)

// Opcode is an instruction mnemonic.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpMov
	OpPush
	OpPop
	OpAdd
	OpSub
	OpImul
	OpIdiv
	OpCqo
	OpNeg
	OpNot
	OpCmp
	OpSete
	OpSetne
	OpSetl
	OpSetle
	OpSetg
	OpSetge
	OpJe
	OpJne
	OpJmp
	OpSyscall
	OpRet
)

var mnemonics = map[string]Opcode{
	"mov":     OpMov,
	"push":    OpPush,
	"pop":     OpPop,
	"add":     OpAdd,
	"sub":     OpSub,
	"imul":    OpImul,
	"idiv":    OpIdiv,
	"cqo":     OpCqo,
	"neg":     OpNeg,
	"not":     OpNot,
	"cmp":     OpCmp,
	"sete":    OpSete,
	"setne":   OpSetne,
	"setl":    OpSetl,
	"setle":   OpSetle,
	"setg":    OpSetg,
	"setge":   OpSetge,
	"je":      OpJe,
	"jne":     OpJne,
	"jmp":     OpJmp,
	"syscall": OpSyscall,
	"ret":     OpRet,
}

func (op Opcode) String() string {
	for name, o := range mnemonics {
		if o == op {
			return name
		}
	}
	return fmt.Sprintf("opcode(%d)", op)
}

// operand counts accepted per opcode: min, max.
var arity = map[Opcode][2]int{
	OpMov: {2, 2}, OpPush: {1, 1}, OpPop: {1, 1},
	OpAdd: {2, 2}, OpSub: {2, 2}, OpImul: {1, 2}, OpIdiv: {1, 1},
	OpCqo: {0, 0}, OpNeg: {1, 1}, OpNot: {1, 1}, OpCmp: {2, 2},
	OpSete: {1, 1}, OpSetne: {1, 1}, OpSetl: {1, 1},
	OpSetle: {1, 1}, OpSetg: {1, 1}, OpSetge: {1, 1},
	OpJe: {1, 1}, OpJne: {1, 1}, OpJmp: {1, 1},
	OpSyscall: {0, 0}, OpRet: {0, 0},
}

// Reg names a register.
type Reg uint8

const (
	RAX Reg = iota
	RBX
	RDX
	RDI
	RBP
	RSP
	AL // low byte of RAX

	numRegs = AL
)

var regNames = map[string]Reg{
	"rax": RAX, "rbx": RBX, "rdx": RDX, "rdi": RDI,
	"rbp": RBP, "rsp": RSP, "al": AL,
}

func (r Reg) String() string {
	for name, x := range regNames {
		if x == r {
			return name
		}
	}
	return fmt.Sprintf("reg(%d)", r)
}

// OperandKind discriminates Operand.
type OperandKind uint8

const (
	RegOperand   OperandKind = iota + 1 // Reg
	ImmOperand                          // Imm
	MemOperand                          // qword [Reg + Imm]
	LabelOperand                        // Label, resolved to Target
)

// Operand is one instruction operand.
type Operand struct {
	Kind   OperandKind
	Reg    Reg
	Imm    int64 // immediate, or displacement for memory operands
	Label  string
	Target int // instruction index of Label
}

func (o Operand) String() string {
	switch o.Kind {
	case RegOperand:
		return o.Reg.String()
	case ImmOperand:
		return strconv.FormatInt(o.Imm, 10)
	case MemOperand:
		switch {
		case o.Imm < 0:
			return fmt.Sprintf("[%s - %d]", o.Reg, -o.Imm)
		case o.Imm > 0:
			return fmt.Sprintf("[%s + %d]", o.Reg, o.Imm)
		}
		return fmt.Sprintf("[%s]", o.Reg)
	case LabelOperand:
		return o.Label
	}
	return "?"
}

// Inst is one decoded instruction.
type Inst struct {
	Op   Opcode
	Args []Operand
	Line int // source line, 1-based
}

func (in Inst) String() string {
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = a.String()
	}
	if len(args) == 0 {
		return in.Op.String()
	}
	return in.Op.String() + " " + strings.Join(args, ", ")
}

// Program is a parsed assembly listing.
type Program struct {
	Insts  []Inst
	Labels map[string]int // label -> index of the following instruction
	Entry  int            // index of _start
}

// EntryLabel is the symbol execution starts from.
const EntryLabel = rtabi.EntrySymbol

// ParseError reports a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads an assembly listing. Labels are resolved in a second pass,
// so jumps may refer forward.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{Labels: make(map[string]int)}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := prog.parseLine(sc.Text(), lineNo); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	entry, ok := prog.Labels[EntryLabel]
	if !ok {
		return nil, &ParseError{Line: lineNo, Msg: "no " + EntryLabel + " label"}
	}
	prog.Entry = entry

	for i := range prog.Insts {
		in := &prog.Insts[i]
		for j := range in.Args {
			a := &in.Args[j]
			if a.Kind != LabelOperand {
				continue
			}
			target, ok := prog.Labels[a.Label]
			if !ok {
				return nil, &ParseError{Line: in.Line, Msg: fmt.Sprintf("undefined label %q", a.Label)}
			}
			a.Target = target
		}
	}
	return prog, nil
}

// ParseString parses src.
func ParseString(src string) (*Program, error) {
	return Parse(strings.NewReader(src))
}

func (p *Program) parseLine(raw string, lineNo int) error {
	line := raw
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if strings.HasSuffix(line, ":") {
		label := strings.TrimSpace(line[:len(line)-1])
		if !isIdent(label) {
			return &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid label %q", label)}
		}
		if _, dup := p.Labels[label]; dup {
			return &ParseError{Line: lineNo, Msg: fmt.Sprintf("duplicate label %q", label)}
		}
		p.Labels[label] = len(p.Insts)
		return nil
	}

	mnemonic, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		mnemonic, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	mnemonic = strings.ToLower(mnemonic)

	switch mnemonic {
	case "global", "section":
		if rest == "" {
			return &ParseError{Line: lineNo, Msg: mnemonic + " needs an argument"}
		}
		return nil
	}

	op, ok := mnemonics[mnemonic]
	if !ok {
		return &ParseError{Line: lineNo, Msg: fmt.Sprintf("unknown instruction %q", mnemonic)}
	}

	in := Inst{Op: op, Line: lineNo}
	if rest != "" {
		for _, field := range strings.Split(rest, ",") {
			a, err := parseOperand(strings.TrimSpace(field), op)
			if err != nil {
				return &ParseError{Line: lineNo, Msg: err.Error()}
			}
			in.Args = append(in.Args, a)
		}
	}
	n := arity[op]
	if len(in.Args) < n[0] || len(in.Args) > n[1] {
		return &ParseError{Line: lineNo, Msg: fmt.Sprintf("%s takes %d operand(s), got %d", mnemonic, n[1], len(in.Args))}
	}
	p.Insts = append(p.Insts, in)
	return nil
}

func parseOperand(s string, op Opcode) (Operand, error) {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "qword") {
		lower = strings.TrimSpace(lower[len("qword"):])
		if !strings.HasPrefix(lower, "[") {
			return Operand{}, fmt.Errorf("size hint without memory operand in %q", s)
		}
	}

	if strings.HasPrefix(lower, "[") {
		return parseMem(lower)
	}
	if r, ok := regNames[lower]; ok {
		return Operand{Kind: RegOperand, Reg: r}, nil
	}
	if v, err := strconv.ParseInt(lower, 10, 64); err == nil {
		return Operand{Kind: ImmOperand, Imm: v}, nil
	}
	if (op == OpJe || op == OpJne || op == OpJmp) && isIdent(s) {
		return Operand{Kind: LabelOperand, Label: s}, nil
	}
	return Operand{}, fmt.Errorf("invalid operand %q", s)
}

// parseMem parses "[reg]", "[reg + k]" or "[reg - k]".
func parseMem(s string) (Operand, error) {
	if !strings.HasSuffix(s, "]") {
		return Operand{}, fmt.Errorf("unterminated memory operand %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])

	base, disp, sign := body, "", int64(1)
	if i := strings.IndexAny(body, "+-"); i >= 0 {
		base, disp = strings.TrimSpace(body[:i]), strings.TrimSpace(body[i+1:])
		if body[i] == '-' {
			sign = -1
		}
	}

	r, ok := regNames[base]
	if !ok || (r != RBP && r != RSP) {
		return Operand{}, fmt.Errorf("unsupported base register %q", base)
	}
	a := Operand{Kind: MemOperand, Reg: r}
	if disp != "" {
		v, err := strconv.ParseInt(disp, 10, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("invalid displacement %q", disp)
		}
		a.Imm = sign * v
	}
	return a, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '.' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
