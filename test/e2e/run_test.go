package e2e

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/you-not-fish/qxc/internal/codegen"
	"github.com/you-not-fish/qxc/internal/compiler"
	"github.com/you-not-fish/qxc/internal/syntax"
	"github.com/you-not-fish/qxc/internal/vm"
)

// TestE2E runs end-to-end tests for all .c files in testdata/.
// Each test:
//  1. Parses and generates assembly in-process
//  2. Executes the assembly on the VM and compares the exit status
//     against the .golden file, under both scoping modes
//  3. If nasm and ld are installed, builds a real executable and checks
//     that it exits with the same status
func TestE2E(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*.c")
	if err != nil {
		t.Fatal(err)
	}
	if len(testFiles) == 0 {
		t.Fatal("no .c test files found in testdata/")
	}

	native := haveToolchain()

	for _, testFile := range testFiles {
		name := strings.TrimSuffix(filepath.Base(testFile), ".c")
		t.Run(name, func(t *testing.T) {
			want := readGoldenStatus(t, testFile)

			for _, scoping := range []codegen.Scoping{codegen.ScopeFlat, codegen.ScopeBlock} {
				if got := runInVM(t, testFile, scoping); got != want {
					t.Errorf("vm (%s scoping): exit status %d, want %d", scoping, got, want)
				}
			}

			if !native {
				return
			}
			if got := runNative(t, testFile); got != want {
				t.Errorf("native: exit status %d, want %d", got, want)
			}
		})
	}
}

// TestE2EErrors checks that every program in testdata/errors/ is rejected
// with the diagnostic in its .golden file and that no executable is built.
func TestE2EErrors(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/errors/*.c")
	if err != nil {
		t.Fatal(err)
	}
	if len(testFiles) == 0 {
		t.Fatal("no .c test files found in testdata/errors/")
	}

	for _, testFile := range testFiles {
		name := strings.TrimSuffix(filepath.Base(testFile), ".c")
		t.Run(name, func(t *testing.T) {
			want := strings.TrimSpace(readGolden(t, testFile))
			exe := filepath.Join(t.TempDir(), "prog")

			_, err := compiler.Compile(context.Background(), compiler.Options{
				Input:  testFile,
				Output: exe,
				Mode:   compiler.ModeCompile,
				Stdout: &bytes.Buffer{},
				Stderr: &bytes.Buffer{},
			})
			if err == nil {
				t.Fatal("compilation succeeded")
			}
			var te *compiler.ToolError
			if errors.As(err, &te) {
				t.Fatalf("reached the toolchain: %v", err)
			}
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not contain %q", err, want)
			}
			if !strings.HasPrefix(err.Error(), testFile+":") {
				t.Errorf("error %q is not located in %s", err, testFile)
			}
			if _, err := os.Stat(exe); !os.IsNotExist(err) {
				t.Error("executable produced despite error")
			}
		})
	}
}

func readGolden(t *testing.T, cFile string) string {
	t.Helper()
	data, err := os.ReadFile(strings.TrimSuffix(cFile, ".c") + ".golden")
	if err != nil {
		t.Fatalf("reading golden file: %v", err)
	}
	return string(data)
}

func readGoldenStatus(t *testing.T, cFile string) int {
	t.Helper()
	n, err := strconv.Atoi(strings.TrimSpace(readGolden(t, cFile)))
	if err != nil {
		t.Fatalf("golden file for %s: %v", cFile, err)
	}
	return n
}

// runInVM compiles cFile in-process and executes it on the VM.
func runInVM(t *testing.T, cFile string, scoping codegen.Scoping) int {
	t.Helper()

	prog, err := syntax.ParseFile(cFile, syntax.Config{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer prog.Release()

	var asm bytes.Buffer
	if err := codegen.Generate(&asm, prog, codegen.Config{Scoping: scoping}); err != nil {
		t.Fatalf("codegen: %v", err)
	}
	listing := asm.String()

	status, err := vm.Run(context.Background(), &asm, 1_000_000)
	if err != nil {
		t.Fatalf("vm: %v\n%s", err, listing)
	}
	return status
}

// runNative builds cFile with nasm and ld and runs the executable.
func runNative(t *testing.T, cFile string) int {
	t.Helper()

	exe := filepath.Join(t.TempDir(), "prog")
	_, err := compiler.Compile(context.Background(), compiler.Options{
		Input:  cFile,
		Output: exe,
		Mode:   compiler.ModeCompile,
		Build:  &compiler.BuildOptions{Assembler: "nasm", AsFlags: []string{"-felf64"}, Linker: "ld"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	err = exec.Command(exe).Run()
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("run: %v", err)
	}
	return ee.ExitCode()
}

func haveToolchain() bool {
	for _, tool := range []string{"nasm", "ld"} {
		if _, err := exec.LookPath(tool); err != nil {
			return false
		}
	}
	return true
}
