package simulate

import (
	"context"
	"log"
	"math/rand"
	"time"

	"bridge-monitor/server/internal/domain"
)

// SensorLister supplies the sensor roster the sampler generates data for.
type SensorLister interface {
	ListSensors(ctx context.Context) ([]domain.Sensor, error)
}

const rosterRefresh = time.Minute

// shockChance is the per-sample probability of an impact transient on a
// damaged structure, roughly a few per hour at one sample per second.
const shockChance = 0.002

// Sampler stands in for the real device fleet: every tick it produces one
// synthetic measurement per registered sensor and hands it to the pipeline
// dispatcher. Per-node state (battery, RSSI, temperatures) random-walks so
// consecutive samples look like a live feed.
type Sampler struct {
	lister   SensorLister
	dispatch func(*domain.Measurement)
	interval time.Duration
	rng      *rand.Rand

	states      map[string]*nodeState
	lastRefresh time.Time
}

type nodeState struct {
	sensor  domain.Sensor
	profile Profile

	battery    float64
	rssi       float64
	boardTemp  float64
	sensorTemp float64
}

func NewSampler(lister SensorLister, dispatch func(*domain.Measurement), interval time.Duration, rng *rand.Rand) *Sampler {
	return &Sampler{
		lister:   lister,
		dispatch: dispatch,
		interval: interval,
		rng:      rng,
		states:   make(map[string]*nodeState),
	}
}

// Run generates measurements until the context is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	s.refreshRoster(ctx, time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if now.Sub(s.lastRefresh) >= rosterRefresh {
				s.refreshRoster(ctx, now)
			}
			for _, m := range s.Tick(now) {
				s.dispatch(m)
			}

		case <-ctx.Done():
			return
		}
	}
}

// Tick advances every node's random walk and returns the generated batch.
func (s *Sampler) Tick(now time.Time) []*domain.Measurement {
	out := make([]*domain.Measurement, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, s.sample(st, now))
	}
	return out
}

func (s *Sampler) sample(st *nodeState, now time.Time) *domain.Measurement {
	p := st.profile

	// 1% of ticks lose a sliver of battery; RSSI and temperatures jitter.
	if s.rng.Float64() > 0.99 {
		st.battery -= 0.1
	}
	st.rssi += uniform(s.rng, -1.5, 1.5)
	if st.rssi > -50 {
		st.rssi = -50
	} else if st.rssi < -110 {
		st.rssi = -110
	}
	st.boardTemp += uniform(s.rng, -0.2, 0.2)
	st.sensorTemp += uniform(s.rng, -0.1, 0.1)

	z := p.Base + uniform(s.rng, -p.Noise, p.Noise)
	if p.Pattern == PatternDamage {
		if s.rng.Float64() > 0.9 {
			z += p.Base * 0.8
		}
		// Occasional high-energy joint impact, well past the 0.8g shock
		// threshold.
		if s.rng.Float64() < shockChance {
			z = uniform(s.rng, 0.85, 1.4)
		}
	}

	return &domain.Measurement{
		ReceivedAt: now,
		Timestamp:  now,
		SensorID:   st.sensor.ID,
		BridgeID:   st.sensor.BridgeID,
		AccelRMSX:  round4(p.Base/3 + uniform(s.rng, -p.Noise, p.Noise)),
		AccelRMSY:  round4(p.Base/3 + uniform(s.rng, -p.Noise, p.Noise)),
		AccelRMSZ:  round4(z),
		SensorTemp: st.sensorTemp,
		BoardTemp:  st.boardTemp,
		Battery:    st.battery,
		RSSI:       st.rssi,
	}
}

func (s *Sampler) refreshRoster(ctx context.Context, now time.Time) {
	sensors, err := s.lister.ListSensors(ctx)
	if err != nil {
		log.Printf("sampler: roster refresh failed: %v", err)
		return
	}
	s.lastRefresh = now

	seen := make(map[string]bool, len(sensors))
	for _, sensor := range sensors {
		seen[sensor.ID] = true
		if st, ok := s.states[sensor.ID]; ok {
			st.sensor = sensor
			continue
		}
		s.states[sensor.ID] = &nodeState{
			sensor:     sensor,
			profile:    ProfileFor(sensor.ID),
			battery:    uniform(s.rng, 85, 99),
			rssi:       uniform(s.rng, -80, -55),
			boardTemp:  uniform(s.rng, 18, 35),
			sensorTemp: uniform(s.rng, 12, 25),
		}
	}

	// Sensors deleted through the admin API drop out of the walk.
	for id := range s.states {
		if !seen[id] {
			delete(s.states, id)
		}
	}
}
