package compiler_test

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/jh-lang/jh/internal/filetest"
	"github.com/jh-lang/jh/lang/compiler"
	"github.com/jh-lang/jh/lang/parser"
)

var testUpdateCompilerTests = flag.Bool("test.update-compiler-tests", false,
	"If set, replace expected compiler disassembly with actual results.")

// TestDisassembleGolden compiles every file under testdata/in and compares
// its disassembly to the matching file under testdata/out, the same
// SourceFiles/DiffOutput pattern as the teacher's lang/scanner/scanner_test.go.
func TestDisassembleGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".jh") {
		t.Run(fi.Name(), func(t *testing.T) {
			prog, err := parser.ParseFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}
			p, err := compiler.Compile(prog)
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			if err := compiler.Disassemble(&buf, p); err != nil {
				t.Fatal(err)
			}
			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateCompilerTests)
		})
	}
}
