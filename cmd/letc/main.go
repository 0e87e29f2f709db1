// Command letc compiles Let source into a bytecode module: the lexer,
// precedence-climbing parser and emitter phases of §4.1-4.4, merged and
// resolved by the same internal linker pass lang/parser.Compile uses to
// stitch top-level functions and the implicit __ctor__ together.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/arcbyte/let/internal/cli"
	"github.com/arcbyte/let/lang/lexer"
	"github.com/arcbyte/let/lang/parser"
	"github.com/arcbyte/let/lang/token"
	"github.com/mna/mainer"
)

// placeholder values, replaced on build
var (
	version   = "{v}"
	buildDate = "{d}"
)

const binName = "letc"

var usage = fmt.Sprintf(`usage: %s [-a|--assembly] INPUT OUTPUT
       %[1]s -tokens INPUT OUTPUT
       %[1]s -h|--help
       %[1]s -v|--version

Compiles a Let source file into a bytecode module (lang/bytecode's binary
container format). INPUT and OUTPUT may be "-" to mean stdin/stdout.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -a --assembly              Print the module's assembler text form
                                 instead of the binary container.
       -tokens                    Print the lexer's token stream instead
                                 of compiling.
`, binName)

type cmd struct {
	cli.Base

	Assembly bool `flag:"a,assembly"`
	Tokens   bool `flag:"tokens"`

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
	name := c.input
	if name == "" {
		name = "<stdin>"
	}
	src, err := cli.ReadFile(stdio, c.input)
	if err != nil {
		return cli.PrintError(stdio, err)
	}

	if c.Tokens {
		return cli.PrintError(stdio, cli.WriteOutput(stdio, c.output, []byte(dumpTokens(name, src))))
	}

	if c.Assembly {
		text, err := parser.CompileText(src)
		if err != nil {
			return cli.PrintError(stdio, fmt.Errorf("%s", cli.FormatParseError(name, src, err)))
		}
		return cli.PrintError(stdio, cli.WriteOutput(stdio, c.output, []byte(text)))
	}

	module, err := parser.Compile(src)
	if err != nil {
		return cli.PrintError(stdio, fmt.Errorf("%s", cli.FormatParseError(name, src, err)))
	}
	b, err := module.Encode()
	if err != nil {
		return cli.PrintError(stdio, err)
	}
	return cli.PrintError(stdio, cli.WriteOutput(stdio, c.output, b))
}

// dumpTokens renders one line per lexeme: its kind, its text, and its
// source position, stopping at (and including) EOF.
func dumpTokens(name string, src []byte) string {
	f := token.NewFile(name, src)
	var l lexer.Lexer
	l.Init(src)

	var b strings.Builder
	for {
		kind := l.Scan()
		start, _ := l.Range()
		fmt.Fprintf(&b, "%s\t%s\t%q\n", f.Position(start), kind, l.Lexeme())
		if kind == token.EOF {
			break
		}
	}
	return b.String()
}
