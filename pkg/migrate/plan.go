package migrate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// Plan is the YAML form of a migration request, so runs can be reviewed and
// repeated from a file instead of a flag pile.
//
//	host: hv-03.example.net
//	switches:
//	  - name: ConvergedSwitch
//	    rename: ConvergedSwitch-SET
//	use_defaults: false
//	load_balancing_algorithm: Dynamic
//	bandwidth_mode: weight
//	notes: "migrated by poshv"
type Plan struct {
	Host     string `yaml:"host,omitempty"`
	Switches []struct {
		Name   string `yaml:"name,omitempty"`
		ID     string `yaml:"id,omitempty"`
		Rename string `yaml:"rename,omitempty"`
	} `yaml:"switches,omitempty"`
	UseDefaults   bool   `yaml:"use_defaults,omitempty"`
	Algorithm     string `yaml:"load_balancing_algorithm,omitempty"`
	BandwidthMode string `yaml:"bandwidth_mode,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	return &plan, nil
}

// ToRequest converts the plan to a Request. Per-switch entries may select by
// name or id but the plan as a whole must stick to one selector kind, same
// as the command line.
func (p *Plan) ToRequest() (*Request, error) {
	req := &Request{
		UseDefaults: p.UseDefaults,
		Notes:       p.Notes,
	}

	var check util.ValidationBuilder
	var anyRename bool
	for i, s := range p.Switches {
		switch {
		case s.Name != "" && s.ID != "":
			check.AddErrorf("switch entry %q: name and id are mutually exclusive", s.Name)
		case s.Name != "":
			req.SwitchNames = append(req.SwitchNames, s.Name)
		case s.ID != "":
			req.SwitchIDs = append(req.SwitchIDs, s.ID)
		default:
			check.AddErrorf("switch entry %d: missing name or id", i+1)
		}
		req.Renames = append(req.Renames, s.Rename)
		if s.Rename != "" {
			anyRename = true
		}
	}
	if err := check.Build(); err != nil {
		return nil, err
	}
	if !anyRename {
		req.Renames = nil
	}

	if p.Algorithm != "" {
		alg, err := hyperv.ParseSETAlgorithm(p.Algorithm)
		if err != nil {
			return nil, err
		}
		req.Algorithm = &alg
	}
	if p.BandwidthMode != "" {
		mode, err := hyperv.ParseBandwidthMode(p.BandwidthMode)
		if err != nil {
			return nil, err
		}
		req.BandwidthMode = &mode
	}
	return req, nil
}
