package linker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists the object files to link, and in what order, as an
// alternative to passing them all on the command line. The `letl -manifest`
// flag reads one of these instead of positional INPUT arguments; when it is
// given, -o and any positional arguments are ignored.
type Manifest struct {
	Output string   `yaml:"output"`
	Inputs []string `yaml:"inputs"`
}

// LoadManifest reads and parses a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("linker: reading manifest %s: %w", path, err)
	}
	var man Manifest
	if err := yaml.Unmarshal(b, &man); err != nil {
		return nil, fmt.Errorf("linker: parsing manifest %s: %w", path, err)
	}
	if len(man.Inputs) == 0 {
		return nil, fmt.Errorf("linker: manifest %s lists no inputs", path)
	}
	return &man, nil
}
