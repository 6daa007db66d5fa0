package marketdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Node is one active DN node eligible for SESS siting, adapted from the
// teacher's data.Location (internal/data/locations.go): an identifier plus
// the scenario it was last observed under.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Scenario string `json:"scenario"`
}

// NodeRegistry is the persisted set of active DN nodes a planning run's
// network file draws its active_dn_nodes list from, adapted from the
// teacher's data.LocationList.
type NodeRegistry struct {
	Scenario  string `json:"scenario"`
	UpdatedAt string `json:"updated_at"` // ISO 8601 timestamp
	Nodes     []Node `json:"nodes"`
}

// LoadNodeRegistry loads a node registry from a JSON file.
func LoadNodeRegistry(path string) (*NodeRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node registry: %w", err)
	}
	var reg NodeRegistry
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse node registry: %w", err)
	}
	return &reg, nil
}

// SaveNodeRegistry writes a node registry to a JSON file, creating its
// parent directory if needed.
func SaveNodeRegistry(reg *NodeRegistry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal node registry: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// DefaultNodeRegistryPath returns the default path for the node registry,
// overridable the same way the teacher's GetDefaultLocationsPath is.
func DefaultNodeRegistryPath() string {
	if path := os.Getenv("NODE_REGISTRY_FILE"); path != "" {
		return path
	}
	return "./data/nodes.json"
}
