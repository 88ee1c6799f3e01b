package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/you-not-fish/qxc/internal/rtabi"
)

// Execution errors, wrapped in *RuntimeError.
var (
	ErrDivideByZero   = errors.New("integer divide by zero")
	ErrDivideOverflow = errors.New("quotient does not fit in 64 bits")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
	ErrBadAddress     = errors.New("memory access outside the stack")
	ErrBadSyscall     = errors.New("unsupported system call")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrFellOff        = errors.New("execution ran past the last instruction")
)

// DefaultStackWords is the stack size used when Config.StackWords is zero.
const DefaultStackWords = 1 << 16

// stackTop is the address just above the stack. Any 8-aligned value
// works; a realistic one keeps listings readable.
const stackTop = 0x7fff_0000

// Config sizes a Machine.
type Config struct {
	StackWords int
}

// RuntimeError locates an execution failure.
type RuntimeError struct {
	Inst Inst
	Err  error
}

func (e *RuntimeError) Error() string {
	if e.Inst.Line == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("line %d: %s: %v", e.Inst.Line, e.Inst, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Machine executes a Program.
type Machine struct {
	prog *Program
	regs [numRegs]int64
	mem  []int64 // stack words; mem[len-1] is at stackTop-8
	low  int64   // lowest valid stack address

	// cmp semantics: the flags of the last flag-setting instruction are
	// those of cmp x, y.
	x, y int64

	ip    int
	steps int
}

// NewMachine returns a machine ready to run prog from its entry label.
func NewMachine(prog *Program, conf Config) *Machine {
	words := conf.StackWords
	if words <= 0 {
		words = DefaultStackWords
	}
	m := &Machine{
		prog: prog,
		mem:  make([]int64, words),
		low:  stackTop - int64(words)*rtabi.WordSize,
		ip:   prog.Entry,
	}
	m.regs[RSP] = stackTop
	return m
}

// Reg returns the current value of r.
func (m *Machine) Reg(r Reg) int64 {
	if r == AL {
		return m.regs[RAX] & 0xff
	}
	return m.regs[r]
}

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int {
	return m.steps
}

// Run executes until the program calls exit, and returns the exit status
// as the operating system reports it (the low 8 bits of rdi). maxSteps of
// zero or less means no limit.
func (m *Machine) Run(ctx context.Context, maxSteps int) (int, error) {
	for {
		if maxSteps > 0 && m.steps >= maxSteps {
			return 0, m.fail(ErrStepLimit)
		}
		if m.steps&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if m.ip < 0 || m.ip >= len(m.prog.Insts) {
			return 0, &RuntimeError{Err: ErrFellOff}
		}
		exited, err := m.step()
		m.steps++
		if err != nil {
			return 0, err
		}
		if exited {
			return int(m.regs[RDI] & rtabi.ExitStatusMask), nil
		}
	}
}

// Run parses the listing in r and executes it on a fresh machine.
func Run(ctx context.Context, r io.Reader, maxSteps int) (int, error) {
	prog, err := Parse(r)
	if err != nil {
		return 0, err
	}
	return NewMachine(prog, Config{}).Run(ctx, maxSteps)
}

func (m *Machine) fail(err error) error {
	in := Inst{}
	if m.ip >= 0 && m.ip < len(m.prog.Insts) {
		in = m.prog.Insts[m.ip]
	}
	return &RuntimeError{Inst: in, Err: err}
}

// step executes one instruction. exited is true after an exit syscall.
func (m *Machine) step() (exited bool, err error) {
	in := m.prog.Insts[m.ip]
	next := m.ip + 1

	switch in.Op {
	case OpMov:
		v, err := m.load(in.Args[1])
		if err != nil {
			return false, m.fail(err)
		}
		if err := m.store(in.Args[0], v); err != nil {
			return false, m.fail(err)
		}

	case OpPush:
		v, err := m.load(in.Args[0])
		if err != nil {
			return false, m.fail(err)
		}
		if err := m.push(v); err != nil {
			return false, m.fail(err)
		}

	case OpPop:
		v, err := m.pop()
		if err != nil {
			return false, m.fail(err)
		}
		if err := m.store(in.Args[0], v); err != nil {
			return false, m.fail(err)
		}

	case OpAdd, OpSub, OpImul:
		if err := m.arith(in); err != nil {
			return false, m.fail(err)
		}

	case OpIdiv:
		d, err := m.load(in.Args[0])
		if err != nil {
			return false, m.fail(err)
		}
		if err := m.idiv(d); err != nil {
			return false, m.fail(err)
		}

	case OpCqo:
		m.regs[RDX] = m.regs[RAX] >> 63

	case OpNeg, OpNot:
		v, err := m.load(in.Args[0])
		if err != nil {
			return false, m.fail(err)
		}
		if in.Op == OpNeg {
			v = -v
		} else {
			v = ^v
		}
		m.x, m.y = v, 0
		if err := m.store(in.Args[0], v); err != nil {
			return false, m.fail(err)
		}

	case OpCmp:
		a, err := m.load(in.Args[0])
		if err != nil {
			return false, m.fail(err)
		}
		b, err := m.load(in.Args[1])
		if err != nil {
			return false, m.fail(err)
		}
		m.x, m.y = a, b

	case OpSete, OpSetne, OpSetl, OpSetle, OpSetg, OpSetge:
		var b int64
		if m.cond(in.Op) {
			b = 1
		}
		if err := m.store(in.Args[0], b); err != nil {
			return false, m.fail(err)
		}

	case OpJe, OpJne, OpJmp:
		if in.Op == OpJmp || m.cond(in.Op) {
			next = in.Args[0].Target
		}

	case OpSyscall:
		if m.regs[RAX] != rtabi.SysExit {
			return false, m.fail(fmt.Errorf("%w %d", ErrBadSyscall, m.regs[RAX]))
		}
		return true, nil

	case OpRet:
		addr, err := m.pop()
		if err != nil {
			return false, m.fail(err)
		}
		if addr < 0 || addr >= int64(len(m.prog.Insts)) {
			return false, m.fail(fmt.Errorf("ret to invalid address %d", addr))
		}
		next = int(addr)

	default:
		return false, m.fail(fmt.Errorf("unimplemented instruction %s", in.Op))
	}

	m.ip = next
	return false, nil
}

func (m *Machine) cond(op Opcode) bool {
	switch op {
	case OpSete, OpJe:
		return m.x == m.y
	case OpSetne, OpJne:
		return m.x != m.y
	case OpSetl:
		return m.x < m.y
	case OpSetle:
		return m.x <= m.y
	case OpSetg:
		return m.x > m.y
	case OpSetge:
		return m.x >= m.y
	}
	return false
}

func (m *Machine) arith(in Inst) error {
	if in.Op == OpImul && len(in.Args) == 1 {
		// One-operand form: rdx:rax = rax * src. Only the low half is
		// tracked exactly; rdx gets the sign of the product.
		v, err := m.load(in.Args[0])
		if err != nil {
			return err
		}
		p := m.regs[RAX] * v
		m.regs[RAX] = p
		m.regs[RDX] = p >> 63
		m.x, m.y = p, 0
		return nil
	}

	a, err := m.load(in.Args[0])
	if err != nil {
		return err
	}
	b, err := m.load(in.Args[1])
	if err != nil {
		return err
	}
	var r int64
	switch in.Op {
	case OpAdd:
		r = a + b
		m.x, m.y = r, 0
	case OpSub:
		r = a - b
		m.x, m.y = a, b
	case OpImul:
		r = a * b
		m.x, m.y = r, 0
	}
	if err := m.store(in.Args[0], r); err != nil {
		return err
	}
	if in.Args[0].Kind == RegOperand && in.Args[0].Reg == RSP && r < m.low {
		return ErrStackOverflow
	}
	return nil
}

// idiv divides rdx:rax by d. The dividend must be the sign extension of
// rax, which is what cqo produces.
func (m *Machine) idiv(d int64) error {
	if d == 0 {
		return ErrDivideByZero
	}
	a := m.regs[RAX]
	if m.regs[RDX] != a>>63 {
		return ErrDivideOverflow
	}
	if a == math.MinInt64 && d == -1 {
		return ErrDivideOverflow
	}
	m.regs[RAX] = a / d
	m.regs[RDX] = a % d
	return nil
}

func (m *Machine) load(a Operand) (int64, error) {
	switch a.Kind {
	case RegOperand:
		return m.Reg(a.Reg), nil
	case ImmOperand:
		return a.Imm, nil
	case MemOperand:
		i, err := m.index(m.regs[a.Reg] + a.Imm)
		if err != nil {
			return 0, err
		}
		return m.mem[i], nil
	}
	return 0, fmt.Errorf("cannot read operand %s", a)
}

func (m *Machine) store(a Operand, v int64) error {
	switch a.Kind {
	case RegOperand:
		if a.Reg == AL {
			m.regs[RAX] = m.regs[RAX]&^0xff | v&0xff
		} else {
			m.regs[a.Reg] = v
		}
		return nil
	case MemOperand:
		i, err := m.index(m.regs[a.Reg] + a.Imm)
		if err != nil {
			return err
		}
		m.mem[i] = v
		return nil
	}
	return fmt.Errorf("cannot write operand %s", a)
}

func (m *Machine) index(addr int64) (int, error) {
	if addr < m.low || addr >= stackTop || (addr-m.low)%rtabi.WordSize != 0 {
		return 0, fmt.Errorf("%w: %#x", ErrBadAddress, addr)
	}
	return int((addr - m.low) / rtabi.WordSize), nil
}

func (m *Machine) push(v int64) error {
	sp := m.regs[RSP] - rtabi.WordSize
	if sp < m.low {
		return ErrStackOverflow
	}
	i, err := m.index(sp)
	if err != nil {
		return err
	}
	m.regs[RSP] = sp
	m.mem[i] = v
	return nil
}

func (m *Machine) pop() (int64, error) {
	sp := m.regs[RSP]
	if sp >= stackTop {
		return 0, ErrStackUnderflow
	}
	i, err := m.index(sp)
	if err != nil {
		return 0, err
	}
	m.regs[RSP] = sp + rtabi.WordSize
	return m.mem[i], nil
}
