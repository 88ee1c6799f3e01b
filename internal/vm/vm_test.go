package vm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func run(t *testing.T, src string) (int, error) {
	t.Helper()
	prog, err := ParseString(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return NewMachine(prog, Config{StackWords: 64}).Run(context.Background(), 10000)
}

const exitRax = `
  mov rdi, rax
  mov rax, 60
  syscall
`

func TestRunExitStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"immediate", "mov rax, 42", 42},
		{"truncated", "mov rax, 300", 44},
		{"negative", "mov rax, 1\n neg rax", 255},
		{"not", "mov rax, 0\n not rax", 255},
		{"add", "mov rax, 2\n mov rbx, 3\n add rax, rbx", 5},
		{"sub", "mov rax, 2\n mov rbx, 3\n sub rax, rbx", 255},
		{"imul", "mov rax, 6\n mov rbx, 7\n imul rax, rbx", 42},
		{"imul_one_operand", "mov rax, 6\n mov rbx, 7\n imul rbx", 42},
		{"idiv", "mov rax, 17\n mov rbx, 5\n cqo\n idiv rbx", 3},
		{"idiv_negative", "mov rax, -7\n mov rbx, 2\n cqo\n idiv rbx\n neg rax", 3},
		{"push_pop", "mov rax, 9\n push rax\n mov rax, 1\n pop rbx\n mov rax, rbx", 9},
		{"push_imm", "push 12\n pop rax", 12},
		{"sete", "mov rax, 3\n cmp rax, 3\n mov rax, 0\n sete al", 1},
		{"setne", "mov rax, 3\n cmp rax, 3\n mov rax, 0\n setne al", 0},
		{"setl_signed", "mov rax, -1\n cmp rax, 0\n mov rax, 0\n setl al", 1},
		{"setge", "mov rax, 5\n mov rbx, 5\n cmp rax, rbx\n mov rax, 0\n setge al", 1},
		{"setg", "mov rax, 4\n mov rbx, 5\n cmp rax, rbx\n mov rax, 0\n setg al", 0},
		{"setle", "mov rax, 4\n mov rbx, 5\n cmp rax, rbx\n mov rax, 0\n setle al", 1},
		{"set_keeps_high_bits", "mov rax, 256\n cmp rax, 0\n setne al", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, "global _start\nsection .text\n_start:\n  "+tt.body+exitRax)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("exit status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunFrame(t *testing.T) {
	src := `
_start:
  push rbp
  mov rbp, rsp
  sub rsp, 16
  mov qword [rbp - 8], 0 ; x
  mov rax, 5
  mov [rbp - 16], rax
  mov rax, [rbp - 16]
  mov rbx, [rbp - 8]
  add rax, rbx
` + exitRax
	got, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("exit status = %d, want 5", got)
	}
}

func TestRunJumps(t *testing.T) {
	src := `
_start:
  mov rax, 0
  cmp rax, 0
  je _Skip
  mov rax, 7
  jmp _Done

_Skip:
  mov rax, 3
  cmp rax, 0
  jne _Done
  mov rax, 99

_Done:
` + exitRax
	got, err := run(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("exit status = %d, want 3", got)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"divide_by_zero", "_start:\n mov rax, 1\n mov rbx, 0\n cqo\n idiv rbx", ErrDivideByZero},
		{"divide_overflow", "_start:\n mov rax, -9223372036854775807\n sub rax, 1\n mov rbx, -1\n cqo\n idiv rbx", ErrDivideOverflow},
		{"bad_syscall", "_start:\n mov rax, 1\n syscall", ErrBadSyscall},
		{"underflow", "_start:\n pop rax", ErrStackUnderflow},
		{"ret_without_caller", "_start:\n push rbp\n mov rbp, rsp\n mov rsp, rbp\n pop rbp\n ret", ErrStackUnderflow},
		{"overflow", "_start:\n push 1\n jmp _start", ErrStackOverflow},
		{"frame_overflow", "_start:\n sub rsp, 4096", ErrStackOverflow},
		{"bad_address", "_start:\n mov rbp, rsp\n mov rax, [rbp + 8]", ErrBadAddress},
		{"infinite_loop", "_start:\n jmp _start", ErrStepLimit},
		{"fell_off", "_start:\n mov rax, 1", ErrFellOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRuntimeErrorLocation(t *testing.T) {
	_, err := run(t, "_start:\n  mov rbx, 0\n  idiv rbx\n")
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RuntimeError", err)
	}
	if re.Inst.Line != 3 {
		t.Errorf("Line = %d, want 3", re.Inst.Line)
	}
	if !strings.Contains(err.Error(), "idiv rbx") {
		t.Errorf("Error() = %q, want the instruction text", err.Error())
	}
}

func TestRunCancelled(t *testing.T) {
	prog, err := ParseString("_start:\n jmp _start")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMachine(prog, Config{}).Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no_entry", "main:\n ret", "no _start label"},
		{"unknown_inst", "_start:\n lea rax, [rbp - 8]", `unknown instruction "lea"`},
		{"undefined_label", "_start:\n jmp nowhere", `undefined label "nowhere"`},
		{"duplicate_label", "_start:\n_start:\n ret", `duplicate label "_start"`},
		{"bad_register", "_start:\n mov rcx, 1", `invalid operand "rcx"`},
		{"bad_base", "_start:\n mov rax, [rax - 8]", "unsupported base register"},
		{"arity", "_start:\n add rax", "add takes 2 operand(s), got 1"},
		{"global_no_arg", "global\n_start:\n ret", "global needs an argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseOperands(t *testing.T) {
	prog, err := ParseString("_start:\n  mov qword [rbp - 16], 0\n  mov rax, [rsp]\n  mov [rbp + 8], al ; tail")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"mov [rbp - 16], 0", "mov rax, [rsp]", "mov [rbp + 8], al"}
	for i, in := range prog.Insts {
		if got := in.String(); got != want[i] {
			t.Errorf("inst %d = %q, want %q", i, got, want[i])
		}
	}
	if prog.Entry != 0 {
		t.Errorf("Entry = %d, want 0", prog.Entry)
	}
}

func TestRunReader(t *testing.T) {
	got, err := Run(context.Background(), strings.NewReader("_start:\n mov rax, 8"+exitRax), 0)
	if err != nil || got != 8 {
		t.Errorf("Run = %d, %v; want 8, nil", got, err)
	}
}
