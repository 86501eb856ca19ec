package patch

import (
	"os"

	"gopkg.in/yaml.v3"
)

// yamlPatch mirrors Patch with YAML tags; kept separate from Patch so
// the in-memory model stays free of serialization concerns, matching
// the teacher's separation between core.Program and its YAML loader
// (core.LoadProgramFileFromYAML).
type yamlPatch struct {
	Blocks []yamlBlock `yaml:"blocks"`
	Edges  []yamlEdge  `yaml:"edges"`
}

type yamlPort struct {
	ID string `yaml:"id"`
}

type yamlBlock struct {
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type"`
	Params      map[string]any `yaml:"params"`
	InputPorts  []yamlPort     `yaml:"inputPorts"`
	OutputPorts []yamlPort     `yaml:"outputPorts"`
	DisplayName string         `yaml:"displayName"`
}

type yamlEdge struct {
	FromBlock   string `yaml:"fromBlock"`
	FromPort    string `yaml:"fromPort"`
	ToBlock     string `yaml:"toBlock"`
	ToPort      string `yaml:"toPort"`
	CombineMode string `yaml:"combineMode"`
	Enabled     *bool  `yaml:"enabled"`
}

// LoadFromYAML reads a Patch authored as YAML. Port types are left at
// the zero CanonicalType, whose axes all read as concrete (float,
// zero cardinality, static, lane-local); no unification variables are
// created and no block catalog is consulted —
// authored YAML fixtures only need to state port names and block
// wiring, the same minimalism the teacher's PE program YAML uses for
// per-timestep instruction lists (core.LoadProgramFileFromYAML).
func LoadFromYAML(path string) (Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Patch{}, err
	}
	return ParseYAML(data)
}

// ParseYAML parses Patch YAML from an in-memory byte slice.
func ParseYAML(data []byte) (Patch, error) {
	var yp yamlPatch
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return Patch{}, err
	}

	p := Patch{
		Blocks: make([]Block, 0, len(yp.Blocks)),
		Edges:  make([]Edge, 0, len(yp.Edges)),
	}
	for _, b := range yp.Blocks {
		blk := Block{
			ID:          BlockID(b.ID),
			Type:        b.Type,
			Params:      b.Params,
			DisplayName: b.DisplayName,
		}
		for _, ip := range b.InputPorts {
			blk.InputPorts = append(blk.InputPorts, Port{ID: PortID(ip.ID)})
		}
		for _, op := range b.OutputPorts {
			blk.OutputPorts = append(blk.OutputPorts, Port{ID: PortID(op.ID)})
		}
		p.Blocks = append(p.Blocks, blk)
	}
	for _, e := range yp.Edges {
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		mode := CombineMode(e.CombineMode)
		if mode == "" {
			mode = CombineWriterWins
		}
		p.Edges = append(p.Edges, Edge{
			FromBlock:   BlockID(e.FromBlock),
			FromPort:    PortID(e.FromPort),
			ToBlock:     BlockID(e.ToBlock),
			ToPort:      PortID(e.ToPort),
			CombineMode: mode,
			Enabled:     enabled,
		})
	}
	return p, nil
}
