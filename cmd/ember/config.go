package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// manifest is the optional debug manifest cmd/ember's --config flag loads
// (§2 ambient stack): module search hints (informative only — this module
// ships a fixed set of host modules, nothing to actually search), an
// instruction budget for the REPL's step loop, and a trace flag. Grounded
// on the yaml.v3 config style seen across the example pack (oriys-nova,
// ProbeChain-go-probe), not on anything in the teacher, which has no
// config file of its own.
type manifest struct {
	ModuleHints       []string `yaml:"module_hints"`
	InstructionBudget int      `yaml:"instruction_budget"`
	Trace             bool     `yaml:"trace"`
}

func defaultManifest() manifest {
	return manifest{InstructionBudget: 10000}
}

func loadManifest(path string) (manifest, error) {
	m := defaultManifest()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{}, err
	}
	return m, nil
}
