package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

// Config is the on-disk configuration shape (YAML) for a planning run.
type Config struct {
	NetworkFile string `yaml:"network_file"`

	// Optional: load SESS investment parameters from a separate named-preset
	// YAML (e.g. presets/sess/utility-scale.yaml). If both SESSPresetFile and
	// SESS are provided, SESS overrides the preset field-by-field.
	SESSPresetFile string     `yaml:"sess_preset_file"`
	SESS           SESSConfig `yaml:"sess"`

	Objective string        `yaml:"objective"`
	Benders   BendersConfig `yaml:"benders"`
	Admm      AdmmConfig    `yaml:"admm"`

	OutputDir string `yaml:"output_dir"`
}

// SESSConfig is the YAML shape of core.SESSParameters, plus a preset name.
type SESSConfig struct {
	Name                string    `yaml:"name"`
	Budget              float64   `yaml:"budget"`
	MaxCapacityMVAh     float64   `yaml:"max_capacity_mvah"`
	MinPEFactor         float64   `yaml:"min_pe_factor"`
	MaxPEFactor         float64   `yaml:"max_pe_factor"`
	CalendarLifeYears   []float64 `yaml:"calendar_life_years"`
	RelativeInitSOC     []float64 `yaml:"relative_init_soc"`
	MinEnergyStoredFrac []float64 `yaml:"min_energy_stored_frac"`
	MaxEnergyStoredFrac []float64 `yaml:"max_energy_stored_frac"`
}

func (s SESSConfig) toParams() core.SESSParameters {
	return core.SESSParameters{
		Budget:              s.Budget,
		MaxCapacityMVAh:     s.MaxCapacityMVAh,
		MinPEFactor:         s.MinPEFactor,
		MaxPEFactor:         s.MaxPEFactor,
		CalendarLifeYears:   s.CalendarLifeYears,
		RelativeInitSOC:     s.RelativeInitSOC,
		MinEnergyStoredFrac: s.MinEnergyStoredFrac,
		MaxEnergyStoredFrac: s.MaxEnergyStoredFrac,
	}
}

// BendersConfig is the YAML shape of core.BendersParameters.
type BendersConfig struct {
	NumMaxIters    int     `yaml:"num_max_iters"`
	TolAbs         float64 `yaml:"tol_abs"`
	TolRel         float64 `yaml:"tol_rel"`
	UpperBoundRole string  `yaml:"upper_bound_role"`
}

// AdmmConfig is the YAML shape of core.AdmmParameters.
type AdmmConfig struct {
	NumMaxIters           int       `yaml:"num_max_iters"`
	Tol                   float64   `yaml:"tol"`
	RhoPF                 []float64 `yaml:"rho_pf"`
	RhoEss                []float64 `yaml:"rho_ess"`
	AdaptivePenalty       bool      `yaml:"adaptive_penalty"`
	AdaptivePenaltyFactor float64   `yaml:"adaptive_penalty_factor"`
	ConvergenceRelTol     float64   `yaml:"convergence_rel_tol"`
	SymmetricPFDuals      bool      `yaml:"symmetric_pf_duals"`
}

// Load reads, merges, defaults, and validates a planning-run config.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	// An omitted tol_rel defaults to zero meaning "never converge on relative
	// gap"; that is rarely what a caller wants, so default it the way the
	// teacher defaults initial_soc to min_soc when left unset.
	if c.Benders.TolRel == 0 {
		c.Benders.TolRel = 0.01
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it. Useful
// for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DataFileError{Path: path, Reason: err.Error()}
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, &core.DataFileError{Path: path, Reason: fmt.Sprintf("parse: %v", err)}
	}
	if c.SESSPresetFile != "" {
		presetPath := c.SESSPresetFile
		if !filepath.IsAbs(presetPath) {
			// Prefer interpreting relative paths as relative to the config
			// file's directory, falling back to cwd-relative if that file
			// doesn't exist.
			cand := filepath.Join(filepath.Dir(path), presetPath)
			if _, err := os.Stat(cand); err == nil {
				presetPath = cand
			}
		}
		preset, err := loadSESSPreset(presetPath)
		if err != nil {
			return nil, err
		}
		c.SESS = MergeSESSParameters(preset, c.SESS)
	}
	return &c, nil
}

// Validate checks the Objective/Benders/Admm enumerated and boolean surface
// before any solve is attempted (spec.md §7: InvalidConfiguration is
// terminal, raised before any solve). Per-site array lengths can only be
// checked once the network's site count is known, so that final check is
// core.Parameters.Validate(dims) inside the orchestrator; this function
// catches everything knowable from the config file alone.
func (c *Config) Validate() error {
	if c == nil {
		return &core.InvalidConfigurationError{Reason: "config is nil"}
	}
	if c.NetworkFile == "" {
		return &core.InvalidConfigurationError{Reason: "network_file is required"}
	}
	switch c.Objective {
	case string(core.ObjectiveCost), string(core.ObjectiveCongestionManagement):
	default:
		return &core.InvalidConfigurationError{Reason: "unknown objective: " + c.Objective}
	}
	if _, err := c.upperBoundRole(); err != nil {
		return err
	}
	if c.Benders.NumMaxIters <= 0 {
		return &core.InvalidConfigurationError{Reason: "benders.num_max_iters must be > 0"}
	}
	if c.Admm.NumMaxIters <= 0 {
		return &core.InvalidConfigurationError{Reason: "admm.num_max_iters must be > 0"}
	}
	if c.SESS.MinPEFactor <= 0 || c.SESS.MaxPEFactor < c.SESS.MinPEFactor {
		return &core.InvalidConfigurationError{Reason: "sess.min_pe_factor/max_pe_factor out of order"}
	}
	return nil
}

func (c *Config) upperBoundRole() (core.Role, error) {
	switch c.Benders.UpperBoundRole {
	case "", "tso":
		return core.RoleTSO, nil
	case "dso":
		return core.RoleDSO, nil
	default:
		return 0, &core.InvalidConfigurationError{Reason: "unknown benders.upper_bound_role: " + c.Benders.UpperBoundRole}
	}
}

// ToParameters converts the validated config into the core.Parameters bundle
// every coordination component runs with. It takes no dims, so the lengths
// of the per-site ADMM rho and SESS arrays are not checked here; that is
// left to core.Parameters.Validate(dims) once the network is loaded.
func (c *Config) ToParameters() (core.Parameters, error) {
	ubRole, err := c.upperBoundRole()
	if err != nil {
		return core.Parameters{}, err
	}
	return core.Parameters{
		ObjType: core.ObjectiveType(c.Objective),
		Benders: core.BendersParameters{
			NumMaxIters:    c.Benders.NumMaxIters,
			TolAbs:         c.Benders.TolAbs,
			TolRel:         c.Benders.TolRel,
			UpperBoundRole: ubRole,
		},
		Admm: core.AdmmParameters{
			NumMaxIters:           c.Admm.NumMaxIters,
			Tol:                   c.Admm.Tol,
			RhoPF:                 c.Admm.RhoPF,
			RhoEss:                c.Admm.RhoEss,
			AdaptivePenalty:       c.Admm.AdaptivePenalty,
			AdaptivePenaltyFactor: c.Admm.AdaptivePenaltyFactor,
			ConvergenceRelTol:     c.Admm.ConvergenceRelTol,
			SymmetricPFDuals:      c.Admm.SymmetricPFDuals,
		},
		SESS: c.SESS.toParams(),
	}, nil
}

type sessPresetWrapper struct {
	SESS SESSConfig `yaml:"sess"`
}

func loadSESSPreset(path string) (SESSConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SESSConfig{}, &core.DataFileError{Path: path, Reason: err.Error()}
	}
	var w sessPresetWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return SESSConfig{}, &core.DataFileError{Path: path, Reason: fmt.Sprintf("parse: %v", err)}
	}
	return w.SESS, nil
}

// MergeSESSParameters overlays non-zero fields from override onto base. Used
// when an API request or top-level config overrides one or two fields of a
// named SESS preset loaded from a file, without needing to restate the
// preset's unrelated fields.
func MergeSESSParameters(base, override SESSConfig) SESSConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.Budget != 0 {
		out.Budget = override.Budget
	}
	if override.MaxCapacityMVAh != 0 {
		out.MaxCapacityMVAh = override.MaxCapacityMVAh
	}
	if override.MinPEFactor != 0 {
		out.MinPEFactor = override.MinPEFactor
	}
	if override.MaxPEFactor != 0 {
		out.MaxPEFactor = override.MaxPEFactor
	}
	if len(override.CalendarLifeYears) != 0 {
		out.CalendarLifeYears = override.CalendarLifeYears
	}
	if len(override.RelativeInitSOC) != 0 {
		out.RelativeInitSOC = override.RelativeInitSOC
	}
	if len(override.MinEnergyStoredFrac) != 0 {
		out.MinEnergyStoredFrac = override.MinEnergyStoredFrac
	}
	if len(override.MaxEnergyStoredFrac) != 0 {
		out.MaxEnergyStoredFrac = override.MaxEnergyStoredFrac
	}
	return out
}
