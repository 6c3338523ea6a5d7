package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Pattern scales the base daily usage for one simulated day. index counts
// days from the start of the simulation.
type Pattern interface {
	Factor(day time.Time, index int) float64
	Name() string
}

func ParsePattern(name string, seed int64) (Pattern, error) {
	switch name {
	case "", "steady":
		return SteadyPattern{}, nil
	case "weekly":
		return WeeklyPattern{}, nil
	case "seasonal":
		return SeasonalPattern{}, nil
	case "growth":
		return GrowthPattern{PerDay: 0.01}, nil
	case "random":
		return NewRandomPattern(seed), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q (steady, weekly, seasonal, growth, random)", name)
	}
}

// SteadyPattern - constant usage
type SteadyPattern struct{}

func (SteadyPattern) Factor(time.Time, int) float64 { return 1 }
func (SteadyPattern) Name() string                  { return "steady" }

// WeeklyPattern - busy weekends, quiet early week
type WeeklyPattern struct{}

func (WeeklyPattern) Factor(day time.Time, _ int) float64 {
	switch day.Weekday() {
	case time.Saturday:
		return 1.8
	case time.Sunday:
		return 1.4
	case time.Monday, time.Tuesday:
		return 0.7
	default:
		return 1
	}
}

func (WeeklyPattern) Name() string { return "weekly" }

// SeasonalPattern - weekly cycle on top of a summer peak
type SeasonalPattern struct{}

func (SeasonalPattern) Factor(day time.Time, index int) float64 {
	yearly := 1 + 0.3*math.Sin(2*math.Pi*float64(day.YearDay()-80)/365.25)
	return yearly * WeeklyPattern{}.Factor(day, index)
}

func (SeasonalPattern) Name() string { return "seasonal" }

// GrowthPattern - usage rising linearly by PerDay of the base each day
type GrowthPattern struct {
	PerDay float64
}

func (p GrowthPattern) Factor(_ time.Time, index int) float64 {
	return 1 + p.PerDay*float64(index)
}

func (GrowthPattern) Name() string { return "growth" }

// RandomPattern - multiplicative noise between 0.5 and 1.5
type RandomPattern struct {
	rng *rand.Rand
}

func NewRandomPattern(seed int64) *RandomPattern {
	return &RandomPattern{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPattern) Factor(time.Time, int) float64 {
	return 0.5 + p.rng.Float64()
}

func (p *RandomPattern) Name() string { return "random" }
