// Command letl links one or more bytecode modules into a single resolved
// module, per §4.7: rebasing each input's addresses, merging label and
// link tables, and failing on duplicate symbols. Symbols that remain
// undefined are kept in the output's link table, not reported as errors.
package main

import (
	"fmt"
	"os"

	"github.com/arcbyte/let/internal/cli"
	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/linker"
	"github.com/mna/mainer"
)

var (
	version   = "{v}"
	buildDate = "{d}"
)

const binName = "letl"

var usage = fmt.Sprintf(`usage: %s -o OUTPUT INPUT...
       %[1]s -manifest FILE
       %[1]s -h|--help
       %[1]s -v|--version

Links one or more bytecode modules into a single module resolving all
cross-module symbol references.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -o                         Output file; required unless -manifest
                                 is given.
       -manifest                  A YAML manifest naming the output and
                                 input paths instead of passing them on
                                 the command line.
`, binName)

type cmd struct {
	cli.Base

	Output   string `flag:"o"`
	Manifest string `flag:"manifest"`

	args []string
}

func (c *cmd) SetArgs(args []string) { c.args = args }

func (c *cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if c.Manifest != "" {
		return nil
	}
	if c.Output == "" {
		return fmt.Errorf("-o is required unless -manifest is given")
	}
	if len(c.args) == 0 {
		return fmt.Errorf("at least one input module is required")
	}
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
	output := c.Output
	inputs := c.args
	if c.Manifest != "" {
		m, err := linker.LoadManifest(c.Manifest)
		if err != nil {
			return cli.PrintError(stdio, err)
		}
		output = m.Output
		inputs = m.Inputs
	}

	modules := make([]*bytecode.Module, 0, len(inputs))
	for _, path := range inputs {
		b, err := os.ReadFile(path)
		if err != nil {
			return cli.PrintError(stdio, err)
		}
		m, err := bytecode.Decode(b)
		if err != nil {
			return cli.PrintError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		modules = append(modules, m)
	}

	merged, err := linker.Merge(modules...)
	if err != nil {
		return cli.PrintError(stdio, err)
	}
	encoded, err := merged.Encode()
	if err != nil {
		return cli.PrintError(stdio, err)
	}
	return cli.PrintError(stdio, cli.WriteOutput(stdio, output, encoded))
}
