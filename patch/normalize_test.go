package patch

import "testing"

func block(id string, in, out []string) Block {
	b := Block{ID: BlockID(id), Type: "test"}
	for _, p := range in {
		b.InputPorts = append(b.InputPorts, Port{ID: PortID(p)})
	}
	for _, p := range out {
		b.OutputPorts = append(b.OutputPorts, Port{ID: PortID(p)})
	}
	return b
}

func TestNormalizeAssignsDenseTopologicalIndex(t *testing.T) {
	p := Patch{
		Blocks: []Block{
			block("b", []string{"in"}, []string{"out"}),
			block("a", nil, []string{"out"}),
		},
		Edges: []Edge{
			{FromBlock: "a", FromPort: "out", ToBlock: "b", ToPort: "in", CombineMode: CombineWriterWins, Enabled: true},
		},
	}

	np, errs := Normalize(p)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if np.IndexOf["a"] >= np.IndexOf["b"] {
		t.Fatalf("expected a before b, got a=%d b=%d", np.IndexOf["a"], np.IndexOf["b"])
	}
}

func TestNormalizeRejectsDanglingEdge(t *testing.T) {
	p := Patch{
		Blocks: []Block{block("a", nil, []string{"out"})},
		Edges: []Edge{
			{FromBlock: "a", FromPort: "out", ToBlock: "missing", ToPort: "in"},
		},
	}

	_, errs := Normalize(p)
	if len(errs) != 1 || errs[0].Code != "DanglingEdge" {
		t.Fatalf("expected a single DanglingEdge error, got %v", errs)
	}
}

func TestNormalizeRejectsDuplicateBlockId(t *testing.T) {
	p := Patch{
		Blocks: []Block{
			block("a", nil, []string{"out"}),
			block("a", nil, []string{"out"}),
		},
	}

	_, errs := Normalize(p)
	if len(errs) == 0 {
		t.Fatalf("expected DuplicateBlockId error")
	}
	found := false
	for _, e := range errs {
		if e.Code == "DuplicateBlockId" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected DuplicateBlockId among errors, got %v", errs)
	}
}

func TestNormalizeCanonicalizesEdgeOrder(t *testing.T) {
	p := Patch{
		Blocks: []Block{
			block("a", nil, []string{"out"}),
			block("b", []string{"in1", "in2"}, nil),
		},
		Edges: []Edge{
			{FromBlock: "a", FromPort: "out", ToBlock: "b", ToPort: "in2", CombineMode: CombineWriterWins, Enabled: true},
			{FromBlock: "a", FromPort: "out", ToBlock: "b", ToPort: "in1", CombineMode: CombineWriterWins, Enabled: true},
		},
	}

	np, errs := Normalize(p)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if np.Edges[0].ToPort != "in1" || np.Edges[1].ToPort != "in2" {
		t.Fatalf("expected edges sorted by toPort, got %+v", np.Edges)
	}
}

func TestReindexRestoresTopologicalOrderAfterAppend(t *testing.T) {
	p := Patch{
		Blocks: []Block{
			block("a", nil, []string{"out"}),
			block("b", []string{"in"}, []string{"out"}),
		},
		Edges: []Edge{
			{FromBlock: "a", FromPort: "out", ToBlock: "b", ToPort: "in", CombineMode: CombineWriterWins, Enabled: true},
		},
	}
	np, errs := Normalize(p)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}

	// Simulate a synthesized block (default source) appended after its
	// consumer, the way compiler/defaultsrc.Insert does before the
	// pipeline re-sorts.
	synth := block("src", nil, []string{"out"})
	np.Blocks = append(np.Blocks, synth)
	np.Edges = append(np.Edges, Edge{FromBlock: "src", FromPort: "out", ToBlock: "a", ToPort: "in", CombineMode: CombineWriterWins, Enabled: true})
	np.BlockOf = append(np.BlockOf, "src")
	np.IndexOf["src"] = BlockIndex(len(np.BlockOf) - 1)

	np.Reindex(TopologicalOrder(np.Blocks, np.Edges))

	if np.IndexOf["src"] >= np.IndexOf["a"] {
		t.Fatalf("expected src before a after reindex, got src=%d a=%d", np.IndexOf["src"], np.IndexOf["a"])
	}
	if np.IndexOf["a"] >= np.IndexOf["b"] {
		t.Fatalf("expected a before b after reindex, got a=%d b=%d", np.IndexOf["a"], np.IndexOf["b"])
	}
	if len(np.BlockOf) != 3 {
		t.Fatalf("expected 3 blocks in BlockOf, got %d", len(np.BlockOf))
	}
}

func TestAnchorIDStableAcrossCalls(t *testing.T) {
	a := AnchorID("defaultSource", "block1", "sides")
	b := AnchorID("defaultSource", "block1", "sides")
	if a != b {
		t.Fatalf("expected stable anchor id, got %s vs %s", a, b)
	}

	c := AnchorID("defaultSource", "block1", "radius")
	if a == c {
		t.Fatalf("expected different local names to produce different anchors")
	}
}
