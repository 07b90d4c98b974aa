package world

import "logosim.ai/internal/sim/world/topology"

type WorldConfig struct {
	ID         string
	Seed       int64
	TickRateHz int

	Bounds topology.Bounds
	WrapX  bool
	WrapY  bool

	// Operational parameters. These are included in snapshots for
	// deterministic replay/resume.
	SnapshotEveryTicks int
	MaxTicks           uint64
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.SnapshotEveryTicks <= 0 {
		c.SnapshotEveryTicks = 300
	}
}
