package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setFlags sets the mode flags for one test and restores them afterwards.
func setFlags(t *testing.T, set func()) {
	t.Helper()
	saved := []interface{}{*emitTokens, *emitAST, *astFormat, *emitAsm, *runFlag, *output, *scope, *trace}
	t.Cleanup(func() {
		*emitTokens = saved[0].(bool)
		*emitAST = saved[1].(bool)
		*astFormat = saved[2].(string)
		*emitAsm = saved[3].(bool)
		*runFlag = saved[4].(bool)
		*output = saved[5].(string)
		*scope = saved[6].(string)
		*trace = saved[7].(bool)
	})
	set()
}

func TestRunReturnsProgramStatus(t *testing.T) {
	filename := writeTempSource(t, "int main() { return 2+3*4; }")
	setFlags(t, func() { *runFlag = true })

	code, out, errOut := captureOutput(t, func() int {
		return runCompile(context.Background(), filename)
	})
	if code != 14 {
		t.Fatalf("runCompile exit=%d, want 14\nstderr:\n%s\nstdout:\n%s", code, errOut, out)
	}
	if errOut != "" {
		t.Fatalf("unexpected stderr:\n%s", errOut)
	}
}

func TestSemanticErrorExitsNonZero(t *testing.T) {
	filename := writeTempSource(t, "int main() { return y; }")
	setFlags(t, func() { *runFlag = true })

	code, _, errOut := captureOutput(t, func() int {
		return runCompile(context.Background(), filename)
	})
	if code != 1 {
		t.Fatalf("runCompile exit=%d, want 1", code)
	}
	if !strings.Contains(errOut, "undefined variable: y") {
		t.Fatalf("stderr missing diagnostic:\n%s", errOut)
	}
	if !strings.Contains(errOut, "input.c:1:21") {
		t.Fatalf("stderr missing position:\n%s", errOut)
	}
}

func TestSyntaxErrorExitsNonZero(t *testing.T) {
	filename := writeTempSource(t, "int main() { 3 = 4; }")
	setFlags(t, func() { *emitAST = true })

	code, out, errOut := captureOutput(t, func() int {
		return runCompile(context.Background(), filename)
	})
	if code != 1 {
		t.Fatalf("runCompile exit=%d, want 1", code)
	}
	if out != "" {
		t.Fatalf("AST printed despite syntax error:\n%s", out)
	}
	if !strings.Contains(errOut, "left-hand side of assignment must be a variable") {
		t.Fatalf("stderr missing diagnostic:\n%s", errOut)
	}
}

func TestEmitASTJSON(t *testing.T) {
	filename := writeTempSource(t, "int main() { return 1; }")
	setFlags(t, func() {
		*emitAST = true
		*astFormat = "json"
	})

	code, out, errOut := captureOutput(t, func() int {
		return runCompile(context.Background(), filename)
	})
	if code != 0 {
		t.Fatalf("exit=%d\nstderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, `"type": "ReturnStmt"`) {
		t.Fatalf("json AST missing ReturnStmt:\n%s", out)
	}
}

func TestEmitAssemblyToOutput(t *testing.T) {
	filename := writeTempSource(t, "int main() { return 0 || 1; }")
	asmPath := filepath.Join(t.TempDir(), "out.asm")
	setFlags(t, func() {
		*emitAsm = true
		*output = asmPath
		*trace = true
	})

	code, _, errOut := captureOutput(t, func() int {
		return runCompile(context.Background(), filename)
	})
	if code != 0 {
		t.Fatalf("exit=%d\nstderr:\n%s", code, errOut)
	}
	data, err := os.ReadFile(asmPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "_LOR_End_1:") {
		t.Fatalf("assembly missing || labels:\n%s", data)
	}
	if !strings.Contains(errOut, "trace: codegen") {
		t.Fatalf("trace output missing:\n%s", errOut)
	}
}

func TestBadScopeFlag(t *testing.T) {
	filename := writeTempSource(t, "int main() { return 0; }")
	setFlags(t, func() { *scope = "dynamic" })

	code, _, errOut := captureOutput(t, func() int {
		return runCompile(context.Background(), filename)
	})
	if code != 1 || !strings.Contains(errOut, "unknown scoping") {
		t.Fatalf("exit=%d stderr=%q", code, errOut)
	}
}

func writeTempSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	filename := filepath.Join(dir, "input.c")
	if err := os.WriteFile(filename, []byte(src), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return filename
}

func captureOutput(t *testing.T, fn func() int) (code int, stdout string, stderr string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stdout: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe stderr: %v", err)
	}

	os.Stdout = wOut
	os.Stderr = wErr

	code = fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	outBytes, _ := io.ReadAll(rOut)
	errBytes, _ := io.ReadAll(rErr)
	_ = rOut.Close()
	_ = rErr.Close()

	return code, string(outBytes), string(errBytes)
}
