package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	values := make([]float64, 0, 20)
	for i := 20; i >= 1; i-- {
		values = append(values, float64(i))
	}

	s := Summarize(values)
	assert.Equal(t, 20, s.Count)
	assert.InDelta(t, 10.5, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(35), s.StdDev, 1e-9)
	assert.Equal(t, 17.0, s.P85)
	assert.Equal(t, 20.0, s.Max)
	assert.Equal(t, 20.0, values[0], "input must not be reordered")
}

func TestSummarize_Small(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))

	one := Summarize([]float64{31})
	assert.Equal(t, Summary{Count: 1, Mean: 31, P85: 31, Max: 31}, one)
}
