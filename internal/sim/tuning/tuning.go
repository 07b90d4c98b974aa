package tuning

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"logosim.ai/internal/sim/world"
	"logosim.ai/internal/sim/world/topology"
)

type Tuning struct {
	WorldID    string `yaml:"world_id"`
	Seed       int64  `yaml:"seed"`
	TickRateHz int    `yaml:"tick_rate_hz"`

	MinPxcor int  `yaml:"min_pxcor"`
	MaxPxcor int  `yaml:"max_pxcor"`
	MinPycor int  `yaml:"min_pycor"`
	MaxPycor int  `yaml:"max_pycor"`
	WrapX    bool `yaml:"wrap_x"`
	WrapY    bool `yaml:"wrap_y"`

	MaxCallDepth       int    `yaml:"max_call_depth"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`
	MaxTicks           uint64 `yaml:"max_ticks"`

	// Model names a built-in model to run; empty runs the default.
	Model string `yaml:"model"`

	// Program declares the variable layout for headless runs.
	Program world.Program `yaml:"program"`
}

func Defaults() Tuning {
	return Tuning{
		WorldID:            "world_1",
		Seed:               1337,
		TickRateHz:         10,
		MinPxcor:           -16,
		MaxPxcor:           16,
		MinPycor:           -16,
		MaxPycor:           16,
		WrapX:              true,
		WrapY:              true,
		MaxCallDepth:       1000,
		SnapshotEveryTicks: 300,
	}
}

// Load reads path over Defaults. Unknown keys are rejected.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Bounds() topology.Bounds {
	return topology.Bounds{MinX: t.MinPxcor, MaxX: t.MaxPxcor, MinY: t.MinPycor, MaxY: t.MaxPycor}
}

// Topology names the wrap mode selected by wrap_x and wrap_y.
func (t Tuning) Topology() string {
	switch {
	case t.WrapX && t.WrapY:
		return "torus"
	case t.WrapX:
		return "vertical-cylinder"
	case t.WrapY:
		return "horizontal-cylinder"
	default:
		return "box"
	}
}

func (t Tuning) Validate() error {
	if err := t.Bounds().Validate(); err != nil {
		return err
	}
	if t.TickRateHz < 0 {
		return fmt.Errorf("tick_rate_hz must be >= 0")
	}
	if t.MaxCallDepth < 0 {
		return fmt.Errorf("max_call_depth must be >= 0")
	}
	return t.Program.Validate()
}

// WorldConfig is the world configuration these settings describe.
func (t Tuning) WorldConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:                 t.WorldID,
		Seed:               t.Seed,
		TickRateHz:         t.TickRateHz,
		Bounds:             t.Bounds(),
		WrapX:              t.WrapX,
		WrapY:              t.WrapY,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		MaxTicks:           t.MaxTicks,
	}
}
