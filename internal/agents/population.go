package agents

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"reusability-token/internal/ids"
)

var ErrInvalidMix = errors.New("invalid_customer_mix")

// DefaultMix is the good/bad/neutral split of a population.
var DefaultMix = []float64{0.3, 0.1, 0.6}

type Census map[Kind]int

// NewCustomers draws n customers whose archetypes follow mix (one weight per
// entry of Kinds). Addresses come from alloc in population order.
func NewCustomers(n int, mix []float64, alloc *ids.Allocator, rng *rand.Rand) ([]*Customer, Census, error) {
	if len(mix) != len(Kinds) {
		return nil, nil, fmt.Errorf("%w: want %d weights, got %d", ErrInvalidMix, len(Kinds), len(mix))
	}
	total := 0.0
	for _, w := range mix {
		if w < 0 {
			return nil, nil, fmt.Errorf("%w: negative weight %v", ErrInvalidMix, w)
		}
		total += w
	}
	if total <= 0 {
		return nil, nil, fmt.Errorf("%w: weights sum to zero", ErrInvalidMix)
	}

	customers := make([]*Customer, 0, n)
	census := Census{}
	for i := 0; i < n; i++ {
		kind := drawKind(rng.Float64()*total, mix)
		customers = append(customers, NewCustomer(alloc.Next(), kind, rng))
		census[kind]++
	}
	return customers, census, nil
}

func drawKind(x float64, mix []float64) Kind {
	for i, w := range mix {
		if x < w {
			return Kinds[i]
		}
		x -= w
	}
	for i := len(mix) - 1; i >= 0; i-- {
		if mix[i] > 0 {
			return Kinds[i]
		}
	}
	return Kinds[len(Kinds)-1]
}

func NewShops(n int, alloc *ids.Allocator) []*Shop {
	shops := make([]*Shop, 0, n)
	for i := 0; i < n; i++ {
		shops = append(shops, NewShop(alloc.Next()))
	}
	return shops
}
