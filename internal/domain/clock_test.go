package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func TestParseTimeOfDay(t *testing.T) {
	valid := map[string]int{"00:00": 0, "09:30": 570, "23:59": 1439, "12:05": 725}
	for in, want := range valid {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, TimeOfDay(want), got, in)
		assert.Equal(t, in, got.String())
	}

	for _, in := range []string{"9:00", "24:00", "12:60", "1200", "12-00", "ab:cd", "", "12:000", " 9:00"} {
		_, err := ParseTimeOfDay(in)
		assert.ErrorIs(t, err, ErrInvalidTimeOfDay, in)
	}
}

func TestOverlaps_Boundaries(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"touching endpoints", "09:00", "10:00", "10:00", "11:00", false},
		{"touching reversed", "10:00", "11:00", "09:00", "10:00", false},
		{"strict containment", "09:00", "10:00", "09:30", "09:45", true},
		{"partial overlap", "09:00", "10:00", "09:30", "10:30", true},
		{"identical", "09:00", "10:00", "09:00", "10:00", true},
		{"disjoint", "08:00", "08:30", "14:00", "15:00", false},
		{"one minute overlap", "09:00", "10:01", "10:00", "11:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(mustTime(t, tt.s1), mustTime(t, tt.e1), mustTime(t, tt.s2), mustTime(t, tt.e2))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	randomInterval := func() (TimeOfDay, TimeOfDay) {
		s := TimeOfDay(r.IntN(1439))
		e := s + 1 + TimeOfDay(r.IntN(int(1439-s)))
		return s, e
	}

	for range 5000 {
		s1, e1 := randomInterval()
		s2, e2 := randomInterval()
		require.Less(t, s1, e1)
		require.Less(t, s2, e2)
		assert.Equal(t, Overlaps(s1, e1, s2, e2), Overlaps(s2, e2, s1, e1),
			"%s-%s vs %s-%s", s1, e1, s2, e2)
	}
}

func TestOverlaps_AgreesWithStringOrder(t *testing.T) {
	// Validated HH:mm strings sort the same way their minute values do.
	a, b := "09:59", "10:00"
	assert.Less(t, a, b)
	assert.Less(t, mustTime(t, a), mustTime(t, b))
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("09:00", "09:30")
	require.NoError(t, err)
	assert.True(t, iv.Valid())

	iv, err = ParseInterval("10:00", "10:00")
	require.NoError(t, err)
	assert.False(t, iv.Valid())

	_, err = ParseInterval("10:00", "7:00")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endTime")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())

	_, err = ParseDate("01/03/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
