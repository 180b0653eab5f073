package ml

import (
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedPrediction is one memoized model output.
type CachedPrediction struct {
	Label int
	Proba []float64
}

// PredictionCache memoizes model outputs keyed by the canonical input
// vector. The model is immutable for the process lifetime, so entries
// never go stale.
type PredictionCache struct {
	entries *lru.Cache[string, CachedPrediction]
}

func NewPredictionCache(size int) (*PredictionCache, error) {
	entries, err := lru.New[string, CachedPrediction](size)
	if err != nil {
		return nil, err
	}
	return &PredictionCache{entries: entries}, nil
}

func (c *PredictionCache) Get(vector []float64) (CachedPrediction, bool) {
	return c.entries.Get(cacheKey(vector))
}

func (c *PredictionCache) Add(vector []float64, prediction CachedPrediction) {
	c.entries.Add(cacheKey(vector), prediction)
}

func (c *PredictionCache) Len() int {
	return c.entries.Len()
}

// cacheKey encodes the exact bit pattern of each value so that
// distinct floats never collide.
func cacheKey(vector []float64) string {
	var b strings.Builder
	b.Grow(len(vector) * 17)
	for i, value := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(math.Float64bits(value), 16))
	}
	return b.String()
}
