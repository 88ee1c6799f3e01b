// Package main implements the qxc compiler entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/you-not-fish/qxc/internal/codegen"
	"github.com/you-not-fish/qxc/internal/compiler"
)

// Compiler flags
var (
	emitTokens = flag.Bool("emit-tokens", false, "Output token stream")
	emitAST    = flag.Bool("emit-ast", false, "Output AST")
	astFormat  = flag.String("ast-format", "text", "AST output format (text or json)")
	emitAsm    = flag.Bool("S", false, "Write assembly only (<input>.asm or -o)")
	runFlag    = flag.Bool("run", false, "Execute in-process and exit with the program's status")
	output     = flag.String("o", "", "Output file")
	scope      = flag.String("scope", "flat", "Variable scoping (flat or block)")
	maxDepth   = flag.Int("max-depth", 0, "Maximum parser nesting depth (0 = default)")
	keepTemp   = flag.Bool("keep-temp", false, "Keep the assembler work directory")
	verbose    = flag.Bool("v", false, "Verbose output")
	trace      = flag.Bool("trace", false, "Output timing trace")
	doctor     = flag.Bool("doctor", false, "Check toolchain")
	version    = flag.Bool("version", false, "Print version")
)

func init() {
	flag.BoolVar(emitTokens, "t", false, "Shorthand for -emit-tokens")
	flag.BoolVar(emitAST, "p", false, "Shorthand for -emit-ast")
}

// Version information
const Version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "qxc %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: qxc [options] <file.c>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Printf("qxc version %s\n", Version)
		fmt.Printf("go version %s\n", runtime.Version())
		os.Exit(0)
	}

	if *doctor {
		os.Exit(runDoctor())
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "error: expected exactly one input file")
		fmt.Fprintln(os.Stderr, "usage: qxc [options] <file.c>")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := runCompile(ctx, args[0])
	stop()
	os.Exit(code)
}

// selectMode maps the mode flags to a pipeline mode. The earliest phase
// requested wins.
func selectMode() compiler.Mode {
	switch {
	case *emitTokens:
		return compiler.ModeTokens
	case *emitAST:
		return compiler.ModeParse
	case *emitAsm:
		return compiler.ModeAssembly
	case *runFlag:
		return compiler.ModeRun
	}
	return compiler.ModeCompile
}

// runCompile compiles filename according to the flags and returns the
// process exit code.
func runCompile(ctx context.Context, filename string) int {
	scoping, err := codegen.ParseScoping(*scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	opts := compiler.Options{
		Input:     filename,
		Output:    *output,
		Mode:      selectMode(),
		Verbose:   *verbose,
		ASTFormat: *astFormat,
		Scoping:   scoping,
		MaxDepth:  *maxDepth,
		KeepTemp:  *keepTemp,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}

	res, err := compiler.Compile(ctx, opts)
	if res != nil && *trace {
		printTrace(res)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if opts.Mode == compiler.ModeRun {
		return res.ExitCode
	}
	return 0
}

func printTrace(res *compiler.Result) {
	for _, p := range res.Phases {
		fmt.Fprintf(os.Stderr, "trace: %-10s %v\n", p.Name, p.Elapsed)
	}
}

// runDoctor checks the toolchain and returns an exit code.
func runDoctor() int {
	if compiler.Doctor(os.Stdout, compiler.DefaultBuildOptions()) {
		return 0
	}
	return 1
}
