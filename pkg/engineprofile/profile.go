// Package engineprofile describes the remote CAD engine coordinates an
// activity is built against: engine id, invocation template, and the DWG
// format version scripts save to. Profiles live in a JSON file so engine
// upgrades don't require a rebuild.
package engineprofile

import (
	"encoding/json"
	"fmt"
	"os"
)

type Profile struct {
	ID          string   `json:"id"`
	Engine      string   `json:"engine"`      // e.g. "Autodesk.AutoCAD+24_3"
	CommandLine []string `json:"commandLine"` // invocation template with $(args[...]) expansions
	SaveFormat  string   `json:"saveFormat"`  // DWG version for SAVEAS, e.g. "2018"
	Description string   `json:"description,omitempty"`
}

type Registry struct {
	Version  string    `json:"version"`
	Default  string    `json:"default"`
	Profiles []Profile `json:"profiles"`
}

func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Resolve returns the named profile, or the registry default when name is
// empty.
func (r *Registry) Resolve(name string) (*Profile, error) {
	if name == "" {
		name = r.Default
	}
	for i := range r.Profiles {
		if r.Profiles[i].ID == name {
			return &r.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("engine profile %q not found", name)
}

// DefaultProfile is used when no registry file is configured.
func DefaultProfile() *Profile {
	return &Profile{
		ID:     "autocad-core-24",
		Engine: "Autodesk.AutoCAD+24_3",
		CommandLine: []string{
			"$(engine.path)\\accoreconsole.exe /i \"$(args[baseDrawing].path)\" /s \"$(args[script].path)\"",
		},
		SaveFormat: "2018",
	}
}
