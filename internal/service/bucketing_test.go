package service

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

func TestPeriodOfLabels(t *testing.T) {
	ts := *at("2024-12-30T08:15:00Z")

	label, start := PeriodOf(ts, models.GranularityDaily, time.UTC)
	assert.Equal(t, "2024-12-30", label)
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), start)

	label, start = PeriodOf(ts, models.GranularityWeekly, time.UTC)
	assert.Equal(t, "W01-2025", label)
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), start)

	label, _ = PeriodOf(ts, models.GranularityMonthly, time.UTC)
	assert.Equal(t, "2024-12", label)

	label, _ = PeriodOf(ts, models.GranularityHourly, time.UTC)
	assert.Equal(t, "8", label)
}

func TestPeriodOfUsesLocation(t *testing.T) {
	lagos := time.FixedZone("WAT", 60*60)

	label, _ := PeriodOf(*at("2024-03-31T23:30:00Z"), models.GranularityDaily, lagos)
	assert.Equal(t, "2024-04-01", label)
}

func TestBucketizeSkipsEmptyPeriodsAndSorts(t *testing.T) {
	events := []time.Time{
		*at("2024-03-05T10:00:00Z"),
		*at("2024-01-10T10:00:00Z"),
		*at("2024-03-20T10:00:00Z"),
	}

	buckets := Bucketize(events, models.GranularityMonthly, time.UTC)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-01", buckets[0].Label)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, "2024-03", buckets[1].Label)
	assert.Equal(t, 2, buckets[1].Count)
}

func TestBucketizeHourlyAlwaysEmits24(t *testing.T) {
	buckets := Bucketize(nil, models.GranularityHourly, time.UTC)
	require.Len(t, buckets, 24)
	for hour, bucket := range buckets {
		assert.Equal(t, 0, bucket.Count)
		assert.Equal(t, strconv.Itoa(hour), bucket.Label)
	}
}

func TestClassifyDayNight(t *testing.T) {
	var hours [24]int
	_, _, peak := ClassifyDayNight(hours)
	assert.Equal(t, "", peak)

	hours[5] = 2
	hours[6] = 1
	hours[17] = 1
	hours[18] = 1
	day, night, peak := ClassifyDayNight(hours)
	assert.Equal(t, 2, day)
	assert.Equal(t, 3, night)
	assert.Equal(t, PeakPeriodNight, peak)

	hours[12] = 1
	_, _, peak = ClassifyDayNight(hours)
	assert.Equal(t, PeakPeriodDay, peak)
}

func TestPeakHourFirstMaximum(t *testing.T) {
	var hours [24]int
	assert.Nil(t, PeakHour(hours))

	hours[9] = 3
	hours[20] = 3
	peak := PeakHour(hours)
	require.NotNil(t, peak)
	assert.Equal(t, 9, *peak)
}

func TestDailyWindowAscending(t *testing.T) {
	window := DailyWindow(fixtureNow, 3, time.UTC)
	assert.Equal(t, []string{"2024-06-13", "2024-06-14", "2024-06-15"}, window)
}

func TestPercentGuardsZero(t *testing.T) {
	assert.Equal(t, 0.0, percent(3, 0))
	assert.Equal(t, 33.3, percent(1, 3))
	assert.Equal(t, 0.0, round1(0.0/zero()))
}

func zero() float64 { return 0 }
