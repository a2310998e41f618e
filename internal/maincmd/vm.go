package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/jh-lang/jh/lang/compiler"
	"github.com/jh-lang/jh/lang/machine"
)

// VM implements the `vm <bytecode-file>` subcommand: run the program and
// print main's return value to stdout.
func (c *Cmd) VM(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return printError(stdio, RunFile(ctx, stdio, args[0]))
}

// RunFile decodes the bytecode at path and runs it to completion, writing
// main's return value to stdio.Stdout.
func RunFile(ctx context.Context, stdio mainer.Stdio, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p, err := compiler.Decode(f)
	if err != nil {
		return err
	}

	v, err := machine.New(p).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdio.Stdout, v)
	return nil
}
