package vm

import "github.com/caarlos0/env/v6"

// defaultStackCapacity is the §4.8 reference implementation's example
// capacity. It is deliberately small: the reference spec calls out 32 as
// an example, and a small default surfaces StackOverflow quickly in
// pathological recursive programs instead of silently eating memory.
const defaultStackCapacity = 32

// RunConfig is the letr runtime's environment-sourced configuration: the
// supplemented step-limit and stack-capacity knobs, loaded the way the
// teacher loads its own run configuration, with caarlos0/env struct tags.
type RunConfig struct {
	// StackCapacity is the fixed value-stack size. §4.8 leaves the exact
	// number to the implementer ("capacity fixed, e.g. 32 ... implementers
	// may choose larger").
	StackCapacity int `env:"LETR_STACK_CAPACITY" envDefault:"32"`

	// MaxSteps bounds the number of dispatch-loop iterations before the VM
	// halts with StepLimitError. Zero means unlimited.
	MaxSteps uint64 `env:"LETR_MAX_STEPS" envDefault:"0"`
}

// LoadRunConfig reads RunConfig from the process environment, applying the
// defaults above when a variable is unset.
func LoadRunConfig() (RunConfig, error) {
	cfg := RunConfig{}
	if err := env.Parse(&cfg); err != nil {
		return RunConfig{}, err
	}
	if cfg.StackCapacity <= 0 {
		cfg.StackCapacity = defaultStackCapacity
	}
	return cfg, nil
}
