// Command leta assembles the §4.9 textual mnemonic form into a bytecode
// module, or disassembles one back into that text with -d.
package main

import (
	"fmt"
	"os"

	"github.com/arcbyte/let/internal/cli"
	"github.com/arcbyte/let/lang/assembler"
	"github.com/arcbyte/let/lang/bytecode"
	"github.com/mna/mainer"
)

var (
	version   = "{v}"
	buildDate = "{d}"
)

const binName = "leta"

var usage = fmt.Sprintf(`usage: %s INPUT OUTPUT
       %[1]s -d|--disassemble INPUT OUTPUT
       %[1]s -h|--help
       %[1]s -v|--version

Assembles the line-oriented mnemonic text form into a bytecode module.
With -d/--disassemble, INPUT is instead a binary module and the
assembler text form is written to OUTPUT. INPUT and OUTPUT may be "-"
to mean stdin/stdout.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -d --disassemble           Disassemble instead of assemble.
`, binName)

type cmd struct {
	cli.Base

	Disassemble bool `flag:"d,disassemble"`

	args   []string
	input  string
	output string
}

func (c *cmd) SetArgs(args []string) { c.args = args }

func (c *cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) != 2 {
		return fmt.Errorf("expected INPUT and OUTPUT arguments, got %d", len(c.args))
	}
	c.input = c.args[0]
	c.output = c.args[1]
	return nil
}

func main() {
	c := &cmd{Base: cli.Base{BuildVersion: version, BuildDate: buildDate}}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}

func (c *cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, usage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, usage)
		return mainer.Success
	case c.Version:
		cli.PrintVersion(stdio, binName, c.Base)
		return mainer.Success
	}

	if err := c.run(stdio); err != nil {
		return mainer.Failure
	}
	return mainer.Success
}

func (c *cmd) run(stdio mainer.Stdio) error {
	b, err := cli.ReadFile(stdio, c.input)
	if err != nil {
		return cli.PrintError(stdio, err)
	}

	if c.Disassemble {
		module, err := bytecode.Decode(b)
		if err != nil {
			return cli.PrintError(stdio, err)
		}
		text, err := assembler.Disassemble(module)
		if err != nil {
			return cli.PrintError(stdio, err)
		}
		return cli.PrintError(stdio, cli.WriteOutput(stdio, c.output, []byte(text)))
	}

	module, err := assembler.Assemble(b)
	if err != nil {
		return cli.PrintError(stdio, err)
	}
	encoded, err := module.Encode()
	if err != nil {
		return cli.PrintError(stdio, err)
	}
	return cli.PrintError(stdio, cli.WriteOutput(stdio, c.output, encoded))
}
