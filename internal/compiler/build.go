package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// BuildOptions configures the external assembler and linker.
type BuildOptions struct {
	Assembler string   // nasm
	AsFlags   []string // assembler flags, before the input
	Linker    string   // ld
	LinkFlags []string // linker flags, before the object
}

// DefaultBuildOptions returns options taken from the environment:
// QXC_AS and QXC_LD name the tools, QXC_AS_FLAGS and QXC_LD_FLAGS hold
// whitespace-separated extra flags.
func DefaultBuildOptions() *BuildOptions {
	assembler := os.Getenv("QXC_AS")
	if assembler == "" {
		assembler = "nasm"
	}
	linker := os.Getenv("QXC_LD")
	if linker == "" {
		linker = "ld"
	}

	asFlags := []string{"-felf64"}
	if extra := strings.Fields(os.Getenv("QXC_AS_FLAGS")); len(extra) > 0 {
		asFlags = extra
	}

	return &BuildOptions{
		Assembler: assembler,
		AsFlags:   asFlags,
		Linker:    linker,
		LinkFlags: strings.Fields(os.Getenv("QXC_LD_FLAGS")),
	}
}

// ToolError is a failed assembler or linker run.
type ToolError struct {
	Tool   string
	Args   []string
	Output string // combined stdout and stderr
	Err    error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Assemble runs the assembler on asmPath, producing objPath.
func Assemble(ctx context.Context, opts *BuildOptions, asmPath, objPath string) error {
	args := append(append([]string{}, opts.AsFlags...), "-o", objPath, asmPath)
	return runTool(ctx, opts.Assembler, args)
}

// Link runs the linker on objPath, producing exePath.
func Link(ctx context.Context, opts *BuildOptions, objPath, exePath string) error {
	args := append(append([]string{}, opts.LinkFlags...), "-o", exePath, objPath)
	return runTool(ctx, opts.Linker, args)
}

func runTool(ctx context.Context, name string, args []string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &ToolError{Tool: name, Args: args, Output: out.String(), Err: err}
	}
	return nil
}

// Doctor reports on w whether the assembler and linker in opts can be run,
// and returns true if both can.
func Doctor(w io.Writer, opts *BuildOptions) bool {
	fmt.Fprintln(w, "qxc Toolchain Doctor")
	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w)

	allOk := true
	tools := []struct {
		label string
		name  string
		arg   string
	}{
		{"assembler", opts.Assembler, "-v"},
		{"linker", opts.Linker, "--version"},
	}
	for _, tool := range tools {
		version, ok := CheckTool(tool.name, tool.arg)
		fmt.Fprintf(w, "%-10s %-6s %s", tool.label+":", tool.name, version)
		if ok {
			fmt.Fprintln(w, " ✓")
		} else {
			fmt.Fprintln(w, " ✗ (not found)")
			allOk = false
		}
	}

	fmt.Fprintln(w)
	if allOk {
		fmt.Fprintln(w, "All required tools available!")
	} else {
		fmt.Fprintln(w, "Some required tools are missing; -run still works without them.")
	}
	return allOk
}

// CheckTool runs a tool with the given arguments and returns the first
// line of its output.
func CheckTool(name string, args ...string) (string, bool) {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", false
	}
	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimSpace(line)
	if len(line) > 60 {
		line = line[:57] + "..."
	}
	return line, true
}
