// Package config loads the engine's tunable flags from a YAML file,
// the way internal/eval_harness.LoadSpec reads a benchmark spec: read
// the whole file, unmarshal into a plain struct, validate the fields
// that have a closed set of legal values.
package config

import (
	"fmt"
	"os"

	"github.com/hopv/gohopdr/internal/solver"
	"gopkg.in/yaml.v3"
)

// Config is the full set of engine-tunable flags.
type Config struct {
	// InferPolymorphicType is the switch for polymorphic generalisation
	// of template refinements during derivation. No component reads
	// it.
	InferPolymorphicType bool `yaml:"infer_polymorphic_type"`
	// SharedTypes is the switch for re-using a single template per
	// expression occurrence across intersection branches. No component
	// reads it.
	SharedTypes bool `yaml:"shared_types"`
	// DumpProgress enables diag.Logger's derivation dump; no engine
	// component passes a derivation to that dump.
	DumpProgress bool `yaml:"dump_progress"`

	SMTSolverKind           solver.Kind `yaml:"smt_solver_kind"`
	CHCSolverKind           solver.Kind `yaml:"chc_solver_kind"`
	InterpolationSolverKind solver.Kind `yaml:"interpolation_solver_kind"`

	// SolverPaths overrides the filesystem path used for a given
	// solver kind; a kind absent here resolves to its lowercase name
	// on PATH (see solver.New).
	SolverPaths solver.Paths `yaml:"solver_paths"`
}

var validSMTKinds = map[solver.Kind]bool{
	solver.KindZ3: true, solver.KindUltimateEliminator: true,
	solver.KindCVC: true, solver.KindAuto: true,
}

var validCHCKinds = map[solver.Kind]bool{
	solver.KindSpacer: true, solver.KindHoice: true,
}

var validInterpolationKinds = map[solver.Kind]bool{
	solver.KindSMTInterpol: true, solver.KindCsisat: true,
	solver.KindSpacer: true, solver.KindHoice: true, solver.KindSVMInterpol: true,
}

// Default returns the configuration the engine runs with when no file
// is supplied: polymorphic inference and shared types on, no progress
// dump, Z3/Spacer/SMTInterpol as the three solver personalities.
func Default() Config {
	return Config{
		InferPolymorphicType:    true,
		SharedTypes:             true,
		SMTSolverKind:           solver.KindZ3,
		CHCSolverKind:           solver.KindSpacer,
		InterpolationSolverKind: solver.KindSMTInterpol,
		SolverPaths:             solver.Paths{},
	}
}

// Load reads and validates a YAML configuration file, filling in any
// field the file omits from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a solver kind outside the set the corresponding
// decision procedure actually supports.
func (c Config) Validate() error {
	if !validSMTKinds[c.SMTSolverKind] {
		return fmt.Errorf("config: smt_solver_kind %q is not one of Z3, UltimateEliminator, CVC, Auto", c.SMTSolverKind)
	}
	if !validCHCKinds[c.CHCSolverKind] {
		return fmt.Errorf("config: chc_solver_kind %q is not one of Spacer, Hoice", c.CHCSolverKind)
	}
	if !validInterpolationKinds[c.InterpolationSolverKind] {
		return fmt.Errorf("config: interpolation_solver_kind %q is not one of SMTInterpol, Csisat, Spacer, Hoice, SVMInterpol", c.InterpolationSolverKind)
	}
	return nil
}
