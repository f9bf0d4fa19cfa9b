package simulate

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"bridge-monitor/server/internal/domain"
)

// Pattern selects the shape of a synthetic series.
type Pattern string

const (
	PatternNormal Pattern = "normal" // rush-hour traffic bumps
	PatternWind   Pattern = "wind"   // sinusoidal lateral oscillation
	PatternDamage Pattern = "damage" // random high-energy spikes
	PatternStable Pattern = "stable" // flat with small noise
)

// Profile describes the synthetic behaviour of one resource (sensor or KPI).
type Profile struct {
	Base    float64
	Noise   float64
	Pattern Pattern
}

// ProfileFor maps a resource id to its simulation profile. The substring
// rules mirror the demo fleet: BioBío nodes behave as damaged, Chacao nodes
// as wind-loaded, AI KPIs as stable scores.
func ProfileFor(resourceID string) Profile {
	switch {
	case strings.Contains(resourceID, "node-b1") || strings.Contains(resourceID, "b2-"):
		return Profile{Base: 0.12, Noise: 0.005, Pattern: PatternDamage}
	case strings.Contains(resourceID, "node-c1") || strings.Contains(resourceID, "b3-"):
		return Profile{Base: 0.075, Noise: 0.005, Pattern: PatternWind}
	case strings.Contains(resourceID, "ai"):
		return Profile{Base: 96, Noise: 2, Pattern: PatternStable}
	default:
		return Profile{Base: 0.045, Noise: 0.005, Pattern: PatternNormal}
	}
}

// TrendPoints is the fixed size of a trend summary: one point per hour.
const TrendPoints = 24

// TrendSeries builds the 24-point {t, v} series for the small trend chart.
func TrendSeries(resourceID string, rng *rand.Rand) []domain.TrendPoint {
	p := ProfileFor(resourceID)

	series := make([]domain.TrendPoint, 0, TrendPoints)
	for hour := 0; hour < TrendPoints; hour++ {
		val := p.Base

		switch p.Pattern {
		case PatternNormal:
			if (hour >= 7 && hour <= 9) || (hour >= 18 && hour <= 20) {
				val += p.Base * 0.5
			}
		case PatternWind:
			val += math.Sin(float64(hour)/3.0) * (p.Noise * 3)
		case PatternDamage:
			if rng.Float64() > 0.8 {
				val += p.Base * 0.8
			}
		}

		val += uniform(rng, -p.Noise, p.Noise)

		series = append(series, domain.TrendPoint{
			T: fmt.Sprintf("%02d:00", hour),
			V: round4(val),
		})
	}
	return series
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
