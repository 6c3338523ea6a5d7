package analyzer

import (
	"math"
	"strconv"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// Granularity maps a timestamp to a bucket label.
type Granularity func(t time.Time) string

var (
	HourOfDay   Granularity = func(t time.Time) string { return strconv.Itoa(t.Hour()) }
	DayOfWeek   Granularity = func(t time.Time) string { return t.Weekday().String() }
	MonthOfYear Granularity = func(t time.Time) string { return t.Month().String() }
)

// PatternAnalyzer computes descriptive time-of-activity distributions.
type PatternAnalyzer struct {
	location *time.Location
}

func NewPatternAnalyzer(loc *time.Location) *PatternAnalyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &PatternAnalyzer{location: loc}
}

type Result struct {
	Hourly  models.Distribution
	Weekly  models.Distribution
	Monthly models.Distribution
}

func (a *PatternAnalyzer) Analyze(orders []models.Order, events []models.StockEvent) Result {
	orderTimes := make([]time.Time, len(orders))
	for i, o := range orders {
		orderTimes[i] = o.CreatedAt.In(a.location)
	}
	opTimes := make([]time.Time, len(events))
	for i, e := range events {
		opTimes[i] = e.CreatedAt.In(a.location)
	}

	return Result{
		Hourly:  distribution(orderTimes, opTimes, HourOfDay),
		Weekly:  distribution(orderTimes, opTimes, DayOfWeek),
		Monthly: distribution(orderTimes, opTimes, MonthOfYear),
	}
}

func distribution(orders, ops []time.Time, g Granularity) models.Distribution {
	orderCounts := Count(orders, g)
	opCounts := Count(ops, g)
	return models.Distribution{
		Orders:      orderCounts,
		OrdersPct:   Percentages(orderCounts),
		StockOps:    opCounts,
		StockOpsPct: Percentages(opCounts),
	}
}

// Count buckets timestamps. Buckets with no entries are absent.
func Count(times []time.Time, g Granularity) map[string]int {
	counts := make(map[string]int)
	for _, t := range times {
		counts[g(t)]++
	}
	return counts
}

// Percentages converts counts into shares of the total rounded to one
// decimal place, half to even.
func Percentages(counts map[string]int) map[string]float64 {
	total := 0
	for _, c := range counts {
		total += c
	}

	pct := make(map[string]float64, len(counts))
	for k, c := range counts {
		if total == 0 {
			pct[k] = 0
			continue
		}
		pct[k] = math.RoundToEven(float64(c)/float64(total)*1000) / 10
	}
	return pct
}
