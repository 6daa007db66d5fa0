package handlers

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// miniNetworkYAML mirrors internal/orchestrator's test fixture: one year,
// one day, one active DN node, two instants.
const miniNetworkYAML = `
years:
  - {label: "y0", weight_years: 1}
days:
  - {label: "d0", weight_days: 365}
num_instants: 2
discount_factor: 0
active_dn_nodes: ["dn1"]
investment_costs:
  - {year: 0, power: 1, energy: 1}
planning_parameters:
  budget: 1000
  max_capacity: 10
  min_pe_factor: 0.25
  max_pe_factor: 4
  t_cal: [5]
  relative_init_soc: [0.5]
  min_energy_stored: [0]
  max_energy_stored: [1]
series:
  - node: "dn1"
    role: "tso"
    voltage_base: 1.0
    points:
      - {net_load_p: 1, net_load_q: 0, price: 10, congestion: 0}
      - {net_load_p: 1, net_load_q: 0, price: -5, congestion: 0}
  - node: "dn1"
    role: "dso"
    voltage_base: 1.0
    points:
      - {net_load_p: 1, net_load_q: 0, price: 10, congestion: 0}
      - {net_load_p: 1, net_load_q: 0, price: -5, congestion: 0}
`

func writeMiniNetwork(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mini.yaml")
	if err := os.WriteFile(path, []byte(miniNetworkYAML), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		c.Request = httptest.NewRequest(method, target, nil)
	} else {
		c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, w
}
