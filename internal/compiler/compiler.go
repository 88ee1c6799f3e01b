// Package compiler runs the qxc pipeline: scan, parse, generate assembly,
// then either assemble and link with external tools or execute the
// assembly in process.
package compiler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/you-not-fish/qxc/internal/codegen"
	"github.com/you-not-fish/qxc/internal/syntax"
	"github.com/you-not-fish/qxc/internal/vm"
)

// Mode selects how far the pipeline runs.
type Mode uint8

const (
	ModeCompile  Mode = iota // build an executable
	ModeTokens               // print the token stream
	ModeParse                // print the AST
	ModeAssembly             // write the .asm file only
	ModeRun                  // execute in process and report the exit status
)

func (m Mode) String() string {
	switch m {
	case ModeCompile:
		return "compile"
	case ModeTokens:
		return "tokens"
	case ModeParse:
		return "parse"
	case ModeAssembly:
		return "assembly"
	case ModeRun:
		return "run"
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// DefaultMaxSteps bounds ModeRun execution.
const DefaultMaxSteps = 100_000_000

// Options configures one compilation.
type Options struct {
	Input  string // source file
	Output string // executable (ModeCompile) or .asm (ModeAssembly); derived from Input if empty
	Mode   Mode

	Verbose   bool   // log each phase to Stderr
	ASTFormat string // "text" or "json", for ModeParse

	Scoping  codegen.Scoping
	MaxDepth int // parser nesting limit; 0 means syntax.DefaultMaxDepth
	MaxSteps int // ModeRun instruction limit; 0 means DefaultMaxSteps
	KeepTemp bool

	Build *BuildOptions // nil means DefaultBuildOptions()

	Stdout io.Writer // nil means os.Stdout
	Stderr io.Writer // nil means os.Stderr
}

// Phase is the timing of one pipeline step.
type Phase struct {
	Name    string
	Elapsed time.Duration
}

// Result describes what a compilation produced.
type Result struct {
	Assembly   string // path of the written assembly, if kept
	Executable string // ModeCompile
	ExitCode   int    // ModeRun
	TempDir    string // set when KeepTemp preserved the work directory
	Phases     []Phase
}

type session struct {
	opts   Options
	res    *Result
	stdout io.Writer
	stderr io.Writer
}

// Compile runs the pipeline described by opts. The first failing phase
// stops the pipeline; no later phase runs.
func Compile(ctx context.Context, opts Options) (*Result, error) {
	s := &session{opts: opts, res: &Result{}, stdout: opts.Stdout, stderr: opts.Stderr}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if opts.Input == "" {
		return nil, errors.New("no input file")
	}

	if opts.Mode == ModeTokens {
		return s.res, s.emitTokens()
	}

	var prog *syntax.Program
	err := s.phase("parse", func() error {
		var err error
		prog, err = syntax.ParseFile(opts.Input, syntax.Config{MaxDepth: opts.MaxDepth})
		return err
	})
	if err != nil {
		return s.res, err
	}
	defer prog.Release()

	switch opts.Mode {
	case ModeParse:
		return s.res, s.emitAST(prog)
	case ModeAssembly:
		return s.res, s.writeAssembly(prog)
	case ModeRun:
		return s.res, s.run(ctx, prog)
	case ModeCompile:
		return s.res, s.build(ctx, prog)
	}
	return s.res, fmt.Errorf("unknown mode %v", opts.Mode)
}

func (s *session) logf(format string, args ...interface{}) {
	if s.opts.Verbose {
		fmt.Fprintf(s.stderr, "qxc: "+format+"\n", args...)
	}
}

// phase runs fn and records its duration.
func (s *session) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	s.res.Phases = append(s.res.Phases, Phase{Name: name, Elapsed: elapsed})
	if err == nil {
		s.logf("%s: ok (%v)", name, elapsed)
	}
	return err
}

func (s *session) codegenConfig() codegen.Config {
	return codegen.Config{Scoping: s.opts.Scoping}
}

// emitTokens prints the token stream as a table.
func (s *session) emitTokens() error {
	var toks []syntax.Token
	err := s.phase("scan", func() error {
		f, err := os.Open(s.opts.Input)
		if err != nil {
			return err
		}
		defer f.Close()
		toks, err = syntax.Tokenize(s.opts.Input, f)
		return err
	})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(s.stdout)
	fmt.Fprintf(w, "%-20s %-12s %s\n", "POSITION", "TOKEN", "LITERAL")
	fmt.Fprintf(w, "%-20s %-12s %s\n", strings.Repeat("-", 20), strings.Repeat("-", 12), strings.Repeat("-", 20))
	for _, tok := range toks {
		fmt.Fprintf(w, "%-20s %-12s %s\n", tok.Pos, tok.Kind, tok.Lit)
	}
	return w.Flush()
}

func (s *session) emitAST(prog *syntax.Program) error {
	switch s.opts.ASTFormat {
	case "json":
		return syntax.FprintJSON(s.stdout, prog)
	case "", "text":
		syntax.Fprint(s.stdout, prog)
		return nil
	}
	return fmt.Errorf("unknown AST format %q (want text or json)", s.opts.ASTFormat)
}

func (s *session) writeAssembly(prog *syntax.Program) error {
	path := s.opts.Output
	if path == "" {
		path = replaceExt(s.opts.Input, ".asm")
	}
	err := s.phase("codegen", func() error {
		return GenerateFile(prog, path, s.codegenConfig())
	})
	if err != nil {
		return err
	}
	s.res.Assembly = path
	s.logf("wrote %s", path)
	return nil
}

// run executes the generated assembly on the in-process machine.
func (s *session) run(ctx context.Context, prog *syntax.Program) error {
	var buf bytes.Buffer
	err := s.phase("codegen", func() error {
		return codegen.Generate(&buf, prog, s.codegenConfig())
	})
	if err != nil {
		return err
	}

	maxSteps := s.opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return s.phase("run", func() error {
		code, err := vm.Run(ctx, &buf, maxSteps)
		if err != nil {
			return fmt.Errorf("running %s: %w", s.opts.Input, err)
		}
		s.res.ExitCode = code
		s.logf("exit status %d", code)
		return nil
	})
}

// build writes the assembly to a work directory, then assembles and links
// it into the executable.
func (s *session) build(ctx context.Context, prog *syntax.Program) error {
	dir, err := os.MkdirTemp("", "qxc-")
	if err != nil {
		return err
	}
	if s.opts.KeepTemp {
		s.res.TempDir = dir
		s.logf("keeping work directory %s", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	base := strings.TrimSuffix(filepath.Base(s.opts.Input), filepath.Ext(s.opts.Input))
	asmPath := filepath.Join(dir, base+".asm")
	objPath := filepath.Join(dir, base+".o")
	exePath := s.opts.Output
	if exePath == "" {
		exePath = replaceExt(s.opts.Input, "")
		if exePath == s.opts.Input {
			exePath += ".out"
		}
	}

	if err := s.phase("codegen", func() error {
		return GenerateFile(prog, asmPath, s.codegenConfig())
	}); err != nil {
		return err
	}
	if s.opts.KeepTemp {
		s.res.Assembly = asmPath
	}

	build := s.opts.Build
	if build == nil {
		build = DefaultBuildOptions()
	}
	if err := s.phase("assemble", func() error {
		return Assemble(ctx, build, asmPath, objPath)
	}); err != nil {
		return err
	}
	if err := s.phase("link", func() error {
		return Link(ctx, build, objPath, exePath)
	}); err != nil {
		return err
	}

	s.res.Executable = exePath
	s.logf("wrote %s", exePath)
	return nil
}

// GenerateFile writes the assembly for prog to path. On failure the file
// is removed so no partial output is left behind.
func GenerateFile(prog *syntax.Program, path string, conf codegen.Config) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	if err := codegen.Generate(w, prog, conf); err != nil {
		return err
	}
	return w.Flush()
}

// replaceExt swaps the extension of path for ext.
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
