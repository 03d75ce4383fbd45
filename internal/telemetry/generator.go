package telemetry

import (
	"math"
	"math/rand"
	"time"
)

// BatteryConfig controls the idle battery drift.
type BatteryConfig struct {
	Initial float64
	Drift   float64 // percent lost per ambient tick
	Jitter  float64 // maximum extra downward noise per reading
	Clamp   bool    // keep readings within [0,100]
}

// DefaultBatteryConfig matches the console's idle behaviour.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{Initial: 85, Drift: 0.01, Jitter: 0.1, Clamp: true}
}

// Generator produces ambient battery readings. The baseline only moves
// down; each reading subtracts a little noise from it.
type Generator struct {
	cfg      BatteryConfig
	baseline float64
	rand     *rand.Rand
}

// NewGenerator creates a generator seeded from src. A nil src uses the
// current time.
func NewGenerator(cfg BatteryConfig, src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{cfg: cfg, baseline: cfg.Initial, rand: rand.New(src)}
}

// Seed resets the baseline, e.g. to the level of a freshly loaded scenario.
func (g *Generator) Seed(level float64) {
	g.baseline = g.clamp(level)
}

// Baseline returns the current drift baseline.
func (g *Generator) Baseline() float64 {
	return g.baseline
}

// NextBattery advances the baseline by one tick and returns a reading.
func (g *Generator) NextBattery() float64 {
	g.baseline = g.clamp(g.baseline - g.cfg.Drift)
	reading := g.baseline - g.rand.Float64()*g.cfg.Jitter
	return g.clamp(reading)
}

func (g *Generator) clamp(v float64) float64 {
	if !g.cfg.Clamp {
		return v
	}
	return math.Min(100, math.Max(0, v))
}
