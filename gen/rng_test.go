package gen

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRngDeterministic(t *testing.T) {
	a, b := NewRng(42), NewRng(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
	assert.Equal(t, a.UUID(), b.UUID())
	assert.Equal(t, a.Faker.Email(), b.Faker.Email())

	c := NewRng(43)
	assert.NotEqual(t, NewRng(42).UUID(), c.UUID())
}

func TestRngZeroSeedIsReproducible(t *testing.T) {
	assert.Equal(t, NewRng(0).Faker.Name(), NewRng(0).Faker.Name())
}

func TestRanges(t *testing.T) {
	r := NewRng(1)
	for i := 0; i < 1000; i++ {
		u := r.Uniform(2, 5)
		require.GreaterOrEqual(t, u, 2.0)
		require.Less(t, u, 5.0)

		n := r.IntRange(3, 6)
		require.GreaterOrEqual(t, n, 3)
		require.LessOrEqual(t, n, 6)
	}
	assert.Equal(t, 7, r.IntRange(7, 7))
	assert.Equal(t, 7, r.IntRange(7, 1))
	assert.False(t, r.Chance(0))
	assert.True(t, r.Chance(1))
}

func TestTimeBetween(t *testing.T) {
	r := NewRng(3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	for i := 0; i < 500; i++ {
		ts := r.TimeBetween(start, end)
		require.False(t, ts.Before(start))
		require.False(t, ts.After(end))
		require.Zero(t, ts.Nanosecond())
	}
	assert.Equal(t, start, r.TimeBetween(start, start))
	assert.Equal(t, start, r.TimeBetween(start, start.Add(-time.Hour)))
}

func TestIDs(t *testing.T) {
	r := NewRng(5)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`), r.UUID())
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), r.ShortID())
}

func TestSample(t *testing.T) {
	r := NewRng(9)
	items := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < 100; i++ {
		got := Sample(r, items, 3)
		require.Len(t, got, 3)
		seen := map[string]bool{}
		for _, s := range got {
			require.Contains(t, items, s)
			require.False(t, seen[s], "duplicate %s", s)
			seen[s] = true
		}
	}
	assert.ElementsMatch(t, items, Sample(r, items, 10))
	assert.Contains(t, items, Pick(r, items))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.14, Round(3.14159, 2))
	assert.Equal(t, 2.0, Round(1.5, 0))
	assert.Equal(t, 0.1, Round(0.05, 1))
}

func TestRandDist(t *testing.T) {
	r := NewRng(11)
	for _, heavyTail := range []bool{false, true} {
		d := NewRandDist(heavyTail, r)
		assert.Zero(t, d.Rand(0))
		assert.Zero(t, d.Rand(-1))
		sum := 0.0
		for i := 0; i < 5000; i++ {
			v := d.Rand(10)
			require.GreaterOrEqual(t, v, 0.0)
			if heavyTail {
				require.LessOrEqual(t, v, 10.0)
			}
			sum += v
		}
		assert.InDelta(t, 5.0, sum/5000, 0.3)
	}
}
