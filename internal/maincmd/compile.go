package maincmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/mainer"

	"github.com/jh-lang/jh/lang/compiler"
	"github.com/jh-lang/jh/lang/parser"
)

// bytecodeExt is the extension used for the compiled file written alongside
// the source.
const bytecodeExt = ".jhbc"

// BytecodePath returns the path compile writes to for a given source path.
func BytecodePath(srcPath string) string {
	ext := filepath.Ext(srcPath)
	return strings.TrimSuffix(srcPath, ext) + bytecodeExt
}

// Compile implements the `compile <file.jh>` subcommand.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return printError(stdio, CompileFile(args[0]))
}

// CompileFile parses, compiles and writes the bytecode for srcPath,
// returning a scanner.ErrorList naming the offending token and its source
// position on parse failure.
func CompileFile(srcPath string) error {
	prog, err := parser.ParseFile(srcPath)
	if err != nil {
		return err
	}

	p, err := compiler.Compile(prog)
	if err != nil {
		return err
	}

	out, err := os.Create(BytecodePath(srcPath))
	if err != nil {
		return err
	}
	defer out.Close()

	return compiler.Encode(out, p)
}
