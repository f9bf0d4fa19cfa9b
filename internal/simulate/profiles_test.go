package simulate

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestProfileFor(t *testing.T) {
	tests := []struct {
		resourceID string
		pattern    Pattern
		base       float64
	}{
		{"node-a1", PatternNormal, 0.045},
		{"node-b1", PatternDamage, 0.12},
		{"b2-kpi-acc-z", PatternDamage, 0.12},
		{"node-c1", PatternWind, 0.075},
		{"b3-kpi-acc-y", PatternWind, 0.075},
		{"b1-kpi-ai", PatternStable, 96},
	}

	for _, tt := range tests {
		t.Run(tt.resourceID, func(t *testing.T) {
			p := ProfileFor(tt.resourceID)
			if p.Pattern != tt.pattern {
				t.Fatalf("expected pattern %s, got %s", tt.pattern, p.Pattern)
			}
			if p.Base != tt.base {
				t.Fatalf("expected base %v, got %v", tt.base, p.Base)
			}
		})
	}
}

func TestTrendSeriesShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	series := TrendSeries("node-a1", rng)

	if len(series) != TrendPoints {
		t.Fatalf("expected %d points, got %d", TrendPoints, len(series))
	}
	for i, p := range series {
		want := fmt.Sprintf("%02d:00", i)
		if p.T != want {
			t.Fatalf("point %d: expected label %s, got %s", i, want, p.T)
		}
	}
}

func TestTrendSeriesRushHourBump(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := TrendSeries("node-a1", rng)

	p := ProfileFor("node-a1")
	// Hour 8 carries the +50% traffic bump; hour 3 does not. Even with the
	// ±noise jitter the two cannot overlap.
	if series[8].V <= series[3].V {
		t.Fatalf("expected rush hour 8 (%v) above off-peak hour 3 (%v)", series[8].V, series[3].V)
	}
	if series[8].V < p.Base*1.5-p.Noise {
		t.Fatalf("rush hour value %v below bumped floor", series[8].V)
	}
}

func TestTrendSeriesStableStaysNearBase(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	series := TrendSeries("b1-kpi-ai", rng)

	p := ProfileFor("b1-kpi-ai")
	for i, pt := range series {
		if pt.V < p.Base-p.Noise || pt.V > p.Base+p.Noise {
			t.Fatalf("point %d: stable value %v outside base±noise", i, pt.V)
		}
	}
}

func TestTrendSeriesDamageSpikesBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	series := TrendSeries("node-b1", rng)

	p := ProfileFor("node-b1")
	max := p.Base*1.8 + p.Noise
	for i, pt := range series {
		if pt.V > max {
			t.Fatalf("point %d: damage value %v above spike ceiling %v", i, pt.V, max)
		}
		if pt.V < p.Base-p.Noise {
			t.Fatalf("point %d: damage value %v below floor", i, pt.V)
		}
	}
}
