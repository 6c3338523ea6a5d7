package forecast

import (
	"strconv"
	"time"

	"github.com/OldStager01/stock-forecaster/pkg/models"
)

// Calendar categories are fixed so a single date produces the same columns
// as a full training set. The first category of each group is dropped.
var featureNames = buildFeatureNames()

func buildFeatureNames() []string {
	names := []string{"day_of_month", "year", "is_weekend", "is_month_start", "is_month_end"}
	for wd := 1; wd < 7; wd++ {
		names = append(names, "weekday_"+mondayFirst(wd).String())
	}
	for m := time.February; m <= time.December; m++ {
		names = append(names, "month_"+m.String())
	}
	for q := 2; q <= 4; q++ {
		names = append(names, "quarter_"+strconv.Itoa(q))
	}
	return names
}

// FeatureNames lists the engineered columns in matrix order.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// CalendarFeatures engineers the regression inputs for one date.
func CalendarFeatures(d models.Date) []float64 {
	row := make([]float64, 0, len(featureNames))

	weekday := weekdayIndex(d.Weekday())
	month := int(d.Month())
	quarter := (month-1)/3 + 1

	row = append(row,
		float64(d.Day()),
		float64(d.Year()),
		boolFeature(weekday >= 5),
		boolFeature(d.Day() == 1),
		boolFeature(d.Day() == lastDayOfMonth(d)),
	)
	for wd := 1; wd < 7; wd++ {
		row = append(row, boolFeature(weekday == wd))
	}
	for m := 2; m <= 12; m++ {
		row = append(row, boolFeature(month == m))
	}
	for q := 2; q <= 4; q++ {
		row = append(row, boolFeature(quarter == q))
	}
	return row
}

func lastDayOfMonth(d models.Date) int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// weekdayIndex maps Monday to 0 and Sunday to 6.
func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func mondayFirst(i int) time.Weekday {
	return time.Weekday((i + 1) % 7)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
