package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_DailySumsPerMonth(t *testing.T) {
	var obs []Observation
	// 31 days of January at 10/day = 310, 28 days of February at 10/day = 280.
	for d := 1; d <= 31; d++ {
		obs = append(obs, Observation{Date: day(2021, time.January, d), Value: 10})
	}
	for d := 1; d <= 28; d++ {
		obs = append(obs, Observation{Date: day(2021, time.February, d), Value: 10})
	}

	got := Normalize(obs)

	require.Len(t, got, 2)
	assert.Equal(t, day(2021, time.January, 1), got[0].Date)
	assert.InDelta(t, 310.0, got[0].Value, 1e-9)
	assert.Equal(t, day(2021, time.February, 1), got[1].Date)
	assert.InDelta(t, 280.0, got[1].Value, 1e-9)
}

func TestNormalize_DailyUnevenValuesStillSum(t *testing.T) {
	var obs []Observation
	for d := 1; d <= 31; d++ {
		obs = append(obs, Observation{Date: day(2021, time.January, d), Value: float64(d)})
	}
	got := Normalize(obs)
	require.Len(t, got, 1)
	assert.InDelta(t, 496.0, got[0].Value, 1e-9)
}

func TestNormalize_MonthlyDuplicatesSummed(t *testing.T) {
	obs := []Observation{
		{Date: day(2020, time.March, 1), Value: 5},
		{Date: day(2020, time.January, 15), Value: 2},
		{Date: day(2020, time.January, 1), Value: 3},
		{Date: day(2020, time.February, 1), Value: 7},
	}
	got := Normalize(obs)

	require.Len(t, got, 3)
	assert.Equal(t, Monthly{
		{Date: day(2020, time.January, 1), Value: 5},
		{Date: day(2020, time.February, 1), Value: 7},
		{Date: day(2020, time.March, 1), Value: 5},
	}, got)
}

func TestNormalize_DropsMalformedRows(t *testing.T) {
	obs := []Observation{
		{Date: time.Time{}, Value: 1},
		{Date: day(2020, time.January, 1), Value: math.NaN()},
		{Date: day(2020, time.February, 1), Value: math.Inf(1)},
		{Date: day(2020, time.March, 1), Value: 4},
	}
	got := Normalize(obs)
	require.Len(t, got, 1)
	assert.Equal(t, day(2020, time.March, 1), got[0].Date)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]Observation{{Value: math.NaN()}}))
}

func TestNormalize_IdempotentOnMonthly(t *testing.T) {
	var obs []Observation
	for i := 0; i < 36; i++ {
		obs = append(obs, Observation{Date: AddMonths(day(2019, time.January, 1), i), Value: float64(i*i%17) + 1})
	}
	once := Normalize(obs)
	twice := Normalize(FromMonthly(once))

	require.Len(t, once, 36)
	assert.Equal(t, once, twice)
}

func TestParseObservations(t *testing.T) {
	rows := []RawRow{
		{Date: "2021-01-01", Value: "12"},
		{Date: "not-a-date", Value: "3"},
		{Date: "2021-02", Value: " 7.5 "},
		{Date: "3/1/21", Value: "x"},
		{Date: "4/1/21", Value: "9"},
	}
	got := ParseObservations(rows)

	require.Len(t, got, 3)
	assert.Equal(t, day(2021, time.January, 1), got[0].Date)
	assert.Equal(t, day(2021, time.February, 1), got[1].Date)
	assert.InDelta(t, 7.5, got[1].Value, 1e-9)
	assert.Equal(t, day(2021, time.April, 1), got[2].Date)
}

func TestUsableAndFlat(t *testing.T) {
	assert.True(t, IsFlat(nil))
	assert.True(t, IsFlat([]float64{3}))
	assert.True(t, IsFlat([]float64{3, 3, 3}))
	assert.False(t, IsFlat([]float64{3, 4}))

	m := Monthly{{Date: day(2020, 1, 1), Value: 1}, {Date: day(2020, 2, 1), Value: 1}}
	assert.False(t, m.Usable())
	m[1].Value = 2
	assert.True(t, m.Usable())
}

func TestMonthArithmetic(t *testing.T) {
	assert.Equal(t, day(2021, time.January, 1), AddMonths(day(2020, time.December, 17), 1))
	assert.Equal(t, day(2019, time.November, 1), AddMonths(day(2020, time.January, 31), -2))
	assert.Equal(t, 13, MonthsBetween(day(2020, time.January, 5), day(2021, time.February, 28)))

	got := FutureMonths(day(2020, time.November, 1), 3)
	assert.Equal(t, []time.Time{
		day(2020, time.December, 1),
		day(2021, time.January, 1),
		day(2021, time.February, 1),
	}, got)
}
