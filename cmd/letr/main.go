// Command letr executes one or more compiled bytecode modules per §4.8:
// for each FILE, it decodes the binary container, runs it on a fresh VM
// and prints the final stack value, stopping at the first failure.
package main

import (
	"fmt"
	"os"

	"github.com/arcbyte/let/internal/cli"
	"github.com/arcbyte/let/lang/bytecode"
	"github.com/arcbyte/let/lang/vm"
	"github.com/mna/mainer"
)

var (
	version   = "{v}"
	buildDate = "{d}"
)

const binName = "letr"

var usage = fmt.Sprintf(`usage: %s [-step-limit N] FILE...
       %[1]s -h|--help
       %[1]s -v|--version

Runs one or more compiled bytecode modules, printing each file's final
stack value in turn. Execution stops at the first runtime failure.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -step-limit                Maximum dispatch-loop steps before a
                                 StepLimitError (default: unlimited, or
                                 LETR_MAX_STEPS if set).
`, binName)

// entryLabels are tried in order: a program may export a "main" entry
// point, and always has the implicit top-level "__ctor__" as a fallback.
var entryLabels = []string{"main", "__ctor__"}

type cmd struct {
	cli.Base

	StepLimit uint64 `flag:"step-limit"`

	args []string
}

func (c *cmd) SetArgs(args []string) { c.args = args }

func (c *cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return fmt.Errorf("at least one FILE is required")
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
	cfg, err := vm.LoadRunConfig()
	if err != nil {
		return cli.PrintError(stdio, err)
	}
	if c.StepLimit > 0 {
		cfg.MaxSteps = c.StepLimit
	}

	for _, path := range c.args {
		b, err := os.ReadFile(path)
		if err != nil {
			return cli.PrintError(stdio, err)
		}
		module, err := bytecode.Decode(b)
		if err != nil {
			return cli.PrintError(stdio, fmt.Errorf("%s: %w", path, err))
		}

		v, err := runModule(module, cfg)
		if err != nil {
			return cli.PrintError(stdio, fmt.Errorf("%s: %w", path, err))
		}
		fmt.Fprintf(stdio.Stdout, "%s: %s\n", path, v)
	}
	return nil
}

// runModule tries each of entryLabels in turn, the way a linked program
// may expose a "main" entry while a lone compiled file only ever has the
// implicit top-level "__ctor__".
func runModule(module *bytecode.Module, cfg vm.RunConfig) (vm.Value, error) {
	for _, label := range entryLabels {
		if _, ok := module.Labels[label]; !ok {
			continue
		}
		return vm.New(module, cfg).Run(label)
	}
	return nil, fmt.Errorf("no entry point found (tried %v)", entryLabels)
}
