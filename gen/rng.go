package gen

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

// Rng is the random state owned by a single generator. Two generators
// built from the same seed produce the same draw sequence regardless of
// what other generators are doing.
type Rng struct {
	*rand.Rand

	// Faker shares the seed but keeps its own stream.
	Faker *gofakeit.Faker
}

func NewRng(seed int64) *Rng {
	r := rand.New(rand.NewSource(uint64(seed)))
	// gofakeit treats a zero seed as "pick one from crypto/rand".
	fakerSeed := int64(r.Uint64()>>1) | 1
	return &Rng{
		Rand:  r,
		Faker: gofakeit.New(fakerSeed),
	}
}

// Uniform returns a float in [min, max).
func (r *Rng) Uniform(min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// IntRange returns an int in [min, max].
func (r *Rng) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// Chance reports true with probability p.
func (r *Rng) Chance(p float64) bool {
	return r.Float64() < p
}

// TimeBetween returns a time uniformly drawn from [start, end], truncated
// to whole seconds.
func (r *Rng) TimeBetween(start, end time.Time) time.Time {
	span := end.Unix() - start.Unix()
	if span <= 0 {
		return start.Truncate(time.Second)
	}
	return time.Unix(start.Unix()+r.Int63n(span+1), 0).UTC()
}

func (r *Rng) UUID() string {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		panic(fmt.Sprintf("uuid from seeded stream: %v", err))
	}
	return id.String()
}

// ShortID is the first eight hex characters of a UUID drawn from the stream.
func (r *Rng) ShortID() string {
	return r.UUID()[:8]
}

func Pick[T any](r *Rng, items []T) T {
	return items[r.Intn(len(items))]
}

// Sample draws k distinct elements without replacement.
func Sample[T any](r *Rng, items []T, k int) []T {
	if k > len(items) {
		k = len(items)
	}
	perm := r.Perm(len(items))
	out := make([]T, k)
	for i := 0; i < k; i++ {
		out[i] = items[perm[i]]
	}
	return out
}

func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
