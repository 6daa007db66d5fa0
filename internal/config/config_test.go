package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/micaelsimoes/shared-resource-planning-no-esso-v2/internal/core"
)

const sampleConfigYAML = `
network_file: "network.yaml"
objective: "COST"
benders:
  num_max_iters: 20
  tol_abs: 1.0
sess:
  name: "inline"
  budget: 1000
  max_capacity_mvah: 10
  min_pe_factor: 0.25
  max_pe_factor: 4
  calendar_life_years: [10]
  relative_init_soc: [0.5]
  min_energy_stored_frac: [0]
  max_energy_stored_frac: [1]
admm:
  num_max_iters: 50
  tol: 0.001
  rho_pf: [1, 1]
  rho_ess: [1, 1]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsTolRelAndValidates(t *testing.T) {
	path := writeConfig(t, sampleConfigYAML)
	c, err := Load(path)
	require.NoError(t, err)
	require.InDelta(t, 0.01, c.Benders.TolRel, 1e-9)

	params, err := c.ToParameters()
	require.NoError(t, err)
	require.Equal(t, core.ObjectiveCost, params.ObjType)
	require.Equal(t, core.RoleTSO, params.Benders.UpperBoundRole)
	require.InDelta(t, 1000.0, params.SESS.Budget, 1e-9)
}

func TestLoadRejectsMissingNetworkFile(t *testing.T) {
	path := writeConfig(t, `
objective: "COST"
benders: {num_max_iters: 1}
admm: {num_max_iters: 1}
sess: {min_pe_factor: 0.25, max_pe_factor: 4}
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *core.InvalidConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadRejectsUnknownObjective(t *testing.T) {
	path := writeConfig(t, `
network_file: "network.yaml"
objective: "NOT_A_REAL_OBJECTIVE"
benders: {num_max_iters: 1}
admm: {num_max_iters: 1}
sess: {min_pe_factor: 0.25, max_pe_factor: 4}
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMergesSESSPresetFile(t *testing.T) {
	dir := t.TempDir()
	presetPath := filepath.Join(dir, "preset.yaml")
	require.NoError(t, os.WriteFile(presetPath, []byte(`
sess:
  name: "utility-scale"
  budget: 5000
  max_capacity_mvah: 50
  min_pe_factor: 0.25
  max_pe_factor: 4
  calendar_life_years: [15]
  relative_init_soc: [0.5]
  min_energy_stored_frac: [0.1]
  max_energy_stored_frac: [0.9]
`), 0o644))

	mainPath := filepath.Join(dir, "planner.yaml")
	require.NoError(t, os.WriteFile(mainPath, []byte(`
network_file: "network.yaml"
objective: "COST"
sess_preset_file: "preset.yaml"
sess:
  budget: 7500
benders: {num_max_iters: 10}
admm: {num_max_iters: 10, rho_pf: [1,1], rho_ess: [1,1]}
`), 0o644))

	c, err := Load(mainPath)
	require.NoError(t, err)
	require.Equal(t, "utility-scale", c.SESS.Name)
	require.InDelta(t, 7500.0, c.SESS.Budget, 1e-9)
	require.InDelta(t, 50.0, c.SESS.MaxCapacityMVAh, 1e-9)
}

func TestMergeSESSParametersOverlaysOnlyNonZeroFields(t *testing.T) {
	base := SESSConfig{Name: "base", Budget: 100, MaxCapacityMVAh: 10, MinPEFactor: 0.25, MaxPEFactor: 4}
	override := SESSConfig{Budget: 200}

	merged := MergeSESSParameters(base, override)
	require.Equal(t, "base", merged.Name)
	require.InDelta(t, 200.0, merged.Budget, 1e-9)
	require.InDelta(t, 10.0, merged.MaxCapacityMVAh, 1e-9)
}
