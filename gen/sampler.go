package gen

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Choice is one row of a weighted lookup table.
type Choice[T any] struct {
	Value  T
	Weight float64
}

// Categorical draws values from a fixed weighted table. Weights are
// normalized on construction.
type Categorical[T any] struct {
	values []T
	dist   distuv.Categorical
}

func NewCategorical[T any](choices []Choice[T], src rand.Source) *Categorical[T] {
	if len(choices) == 0 {
		panic("categorical: empty table")
	}
	values := make([]T, len(choices))
	weights := make([]float64, len(choices))
	total := 0.0
	for i, c := range choices {
		if c.Weight < 0 {
			panic(fmt.Sprintf("categorical: negative weight %v for %v", c.Weight, c.Value))
		}
		values[i] = c.Value
		weights[i] = c.Weight
		total += c.Weight
	}
	if total == 0 {
		panic("categorical: all weights are zero")
	}
	return &Categorical[T]{
		values: values,
		dist:   distuv.NewCategorical(weights, src),
	}
}

func (c *Categorical[T]) Draw() T {
	return c.values[int(c.dist.Rand())]
}

// Values returns the outcomes in table order.
func (c *Categorical[T]) Values() []T {
	return c.values
}

// Prob returns the normalized probability of the i-th outcome.
func (c *Categorical[T]) Prob(i int) float64 {
	return c.dist.Prob(float64(i))
}
