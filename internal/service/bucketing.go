package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

// Day covers hours [dayStartHour, dayEndHour); the remaining hours are night.
const (
	dayStartHour = 6
	dayEndHour   = 18

	PeakPeriodDay   = "Day"
	PeakPeriodNight = "Night"
)

// Bucket is one calendar period with its event count.
type Bucket struct {
	Label string
	Start time.Time
	Count int
}

// PeriodOf returns the label and start of the period containing t in loc.
// Weekly periods follow ISO-8601 weeks and are labelled "Www-YYYY" with the ISO week-year.
func PeriodOf(t time.Time, granularity models.Granularity, loc *time.Location) (string, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch granularity {
	case models.GranularityHourly:
		return strconv.Itoa(local.Hour()), time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	case models.GranularityWeekly:
		year, week := local.ISOWeek()
		offset := (int(day.Weekday()) + 6) % 7
		return fmt.Sprintf("W%02d-%d", week, year), day.AddDate(0, 0, -offset)
	case models.GranularityMonthly:
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return start.Format("2006-01"), start
	default:
		return day.Format("2006-01-02"), day
	}
}

// Bucketize counts events per period. Hourly output always has 24 entries for hours 0-23;
// other granularities emit only non-empty periods, ascending by period start.
func Bucketize(events []time.Time, granularity models.Granularity, loc *time.Location) []Bucket {
	if granularity == models.GranularityHourly {
		hours := HourHistogram(events, loc)
		buckets := make([]Bucket, 24)
		for hour := range hours {
			buckets[hour] = Bucket{Label: strconv.Itoa(hour), Count: hours[hour]}
		}
		return buckets
	}

	index := make(map[string]int)
	buckets := make([]Bucket, 0)
	for _, event := range events {
		label, start := PeriodOf(event, granularity, loc)
		pos, ok := index[label]
		if !ok {
			pos = len(buckets)
			index[label] = pos
			buckets = append(buckets, Bucket{Label: label, Start: start})
		}
		buckets[pos].Count++
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })
	return buckets
}

// HourHistogram counts events per local hour of day.
func HourHistogram(events []time.Time, loc *time.Location) [24]int {
	if loc == nil {
		loc = time.UTC
	}
	var hours [24]int
	for _, event := range events {
		hours[event.In(loc).Hour()]++
	}
	return hours
}

// ClassifyDayNight sums day and night hours and names the larger one. Ties with events favour day;
// an empty histogram has no peak period.
func ClassifyDayNight(hours [24]int) (day, night int, peak string) {
	for hour, count := range hours {
		if hour >= dayStartHour && hour < dayEndHour {
			day += count
		} else {
			night += count
		}
	}
	switch {
	case day == 0 && night == 0:
		peak = ""
	case night > day:
		peak = PeakPeriodNight
	default:
		peak = PeakPeriodDay
	}
	return day, night, peak
}

// PeakHour returns the first hour with the highest count, or nil when there are no events.
func PeakHour(hours [24]int) *int {
	best := -1
	for hour, count := range hours {
		if count > 0 && (best < 0 || count > hours[best]) {
			best = hour
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}

// DailyWindow returns the last `days` calendar dates ending on the date of now, ascending.
func DailyWindow(now time.Time, days int, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	window := make([]string, days)
	for i := 0; i < days; i++ {
		window[i] = today.AddDate(0, 0, i-days+1).Format("2006-01-02")
	}
	return window
}

func round1(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Round(value*10) / 10
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}
