// Package engine is the external API surface consumed by an editor or
// host: compile a Patch, create and drive a Runtime, subscribe to
// diagnostics, and configure continuity (spec.md §6.1). Grounded on
// api.Driver's interface shape and config.DeviceBuilder's fluent
// construction.
package engine

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ContinuityConfig is the global continuity tuning surface (spec.md
// §6.1: "setContinuityConfig({ decayExponent, tauMultiplier,
// debugLogSemantics, showGaugeInspector })"); it survives hot-swap.
type ContinuityConfig struct {
	DecayExponent     float64 `yaml:"decayExponent"`
	TauMultiplier     float64 `yaml:"tauMultiplier"`
	DebugLogSemantics bool    `yaml:"debugLogSemantics"`
	ShowGaugeInspector bool   `yaml:"showGaugeInspector"`
}

// DefaultContinuityConfig mirrors the canonical defaults spec.md §4.11
// assumes when nothing overrides them.
func DefaultContinuityConfig() ContinuityConfig {
	return ContinuityConfig{DecayExponent: 1, TauMultiplier: 1}
}

// EngineConfig is the YAML-loadable configuration for one Engine
// instance — frame rate, diagnostics TTL, and the continuity defaults
// (spec.md §6.1, §6.2). Grounded on config.DeviceBuilder's
// width/height/memoryMode fields, generalized from a CGRA device's
// static shape to an engine's runtime tuning knobs.
type EngineConfig struct {
	FrameRateHz        float64          `yaml:"frameRateHz"`
	DiagnosticTTLFrames int64           `yaml:"diagnosticTtlFrames"`
	Continuity         ContinuityConfig `yaml:"continuity"`
}

// DefaultEngineConfig matches the 60fps assumption runtime.DriverBuilder
// defaults to.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FrameRateHz:         60,
		DiagnosticTTLFrames: 120,
		Continuity:          DefaultContinuityConfig(),
	}
}

// LoadEngineConfigFromYAML reads an EngineConfig from path, following
// patch.LoadFromYAML's same read-then-unmarshal shape.
func LoadEngineConfigFromYAML(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
