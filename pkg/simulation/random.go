package simulation

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// knuthLimit bounds the mean handled by a single multiplication run;
// exp(-λ) stays well inside float64 range below it.
const knuthLimit = 30.0

// stream is the random substream owned by one product lane
// 商品ごとに独立した乱数ストリーム
type stream struct {
	r *rand.Rand
}

// newStream derives the substream of a product from the run seed and the product ID,
// so draws do not depend on product order or worker count
func newStream(seed int64, productID string) *stream {
	h := fnv.New64a()
	h.Write([]byte(productID))
	return &stream{r: rand.New(rand.NewPCG(uint64(seed), h.Sum64()))}
}

// poisson draws from a Poisson distribution with mean lambda
func (s *stream) poisson(lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	var k int64
	for lambda > knuthLimit {
		k += s.knuth(knuthLimit)
		lambda -= knuthLimit
	}
	return k + s.knuth(lambda)
}

func (s *stream) knuth(lambda float64) int64 {
	limit := math.Exp(-lambda)
	p := 1.0
	var k int64
	for {
		p *= s.r.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// choice picks one value uniformly
func (s *stream) choice(values []int) int {
	return values[s.r.IntN(len(values))]
}
