// Package agents holds the market participants: customers, whose behaviour
// is one of a closed set of archetypes, and shops, which only accumulate coins.
package agents

import (
	"math"
	"math/rand/v2"

	"reusability-token/internal/ids"
)

type Kind string

const (
	KindGood    Kind = "good"
	KindBad     Kind = "bad"
	KindNeutral Kind = "neutral"
)

// Kinds lists archetypes in the order used by population mixes.
var Kinds = []Kind{KindGood, KindBad, KindNeutral}

const (
	coinSpend              = 10000.0
	neutralPreferenceRatio = 0.30
)

// strategy is the per-archetype part of a customer. Each variant keeps its own
// shop preferences.
type strategy interface {
	kind() Kind
	recycleProbability() float64
	chooseShop(r *rand.Rand, numShops int) int
}

type goodStrategy struct {
	preferred int
}

func (s *goodStrategy) kind() Kind                  { return KindGood }
func (s *goodStrategy) recycleProbability() float64 { return 0.9 }

// A good customer settles on one shop the first time and stays loyal.
func (s *goodStrategy) chooseShop(r *rand.Rand, numShops int) int {
	if s.preferred < 0 {
		s.preferred = r.IntN(numShops)
	}
	return s.preferred
}

type badStrategy struct{}

func (badStrategy) kind() Kind                  { return KindBad }
func (badStrategy) recycleProbability() float64 { return 0.1 }

func (badStrategy) chooseShop(r *rand.Rand, numShops int) int {
	return r.IntN(numShops)
}

type neutralStrategy struct {
	preferred []int
}

func (s *neutralStrategy) kind() Kind                  { return KindNeutral }
func (s *neutralStrategy) recycleProbability() float64 { return 0.6 }

// A neutral customer picks a fixed subset of shops once and rotates between them.
func (s *neutralStrategy) chooseShop(r *rand.Rand, numShops int) int {
	if len(s.preferred) == 0 {
		n := int(math.Max(1, math.Ceil(neutralPreferenceRatio*float64(numShops))))
		s.preferred = r.Perm(numShops)[:n]
	}
	return s.preferred[r.IntN(len(s.preferred))]
}

func newStrategy(kind Kind) strategy {
	switch kind {
	case KindGood:
		return &goodStrategy{preferred: -1}
	case KindBad:
		return badStrategy{}
	default:
		return &neutralStrategy{}
	}
}

type Customer struct {
	address    ids.Address
	coins      float64
	reputation map[ids.Address]float64
	strategy   strategy
	rng        *rand.Rand
}

func NewCustomer(address ids.Address, kind Kind, rng *rand.Rand) *Customer {
	return &Customer{
		address:    address,
		reputation: map[ids.Address]float64{},
		strategy:   newStrategy(kind),
		rng:        rng,
	}
}

func (c *Customer) Address() ids.Address { return c.address }
func (c *Customer) Kind() Kind           { return c.strategy.kind() }
func (c *Customer) Coins() float64       { return c.coins }

func (c *Customer) ChooseShop(numShops int) int {
	return c.strategy.chooseShop(c.rng, numShops)
}

func (c *Customer) ChooseToRecycle() bool {
	return c.rng.Float64() < c.strategy.recycleProbability()
}

func (c *Customer) ChooseToPayByCoin() bool {
	return c.coins > coinSpend
}

func (c *Customer) CoinSpend() float64 {
	return coinSpend
}

func (c *Customer) TransferCoin(amount float64) {
	c.coins += amount
}

func (c *Customer) SetCoins(amount float64) {
	c.coins = amount
}

func (c *Customer) Reputation(shop ids.Address) float64 {
	return c.reputation[shop]
}

func (c *Customer) TransferReputation(amount float64, shop ids.Address) {
	c.reputation[shop] += amount
}

func (c *Customer) SetReputation(shop ids.Address, value float64) {
	c.reputation[shop] = value
}
