package ledger

import (
	"sort"

	"reusability-token/internal/ids"
)

type pair struct {
	customer ids.Address
	shop     ids.Address
}

// pairMap is a sparse (customer, shop) -> value map. Absent entries read as zero.
type pairMap map[pair]float64

func (m pairMap) get(customer, shop ids.Address) float64 {
	return m[pair{customer: customer, shop: shop}]
}

func (m pairMap) set(customer, shop ids.Address, v float64) {
	m[pair{customer: customer, shop: shop}] = v
}

// grant adds v to the entry but never lets it exceed limit. An entry already
// at or above the limit is replaced by the limit.
func (m pairMap) grant(customer, shop ids.Address, v, limit float64) float64 {
	k := pair{customer: customer, shop: shop}
	cur, ok := m[k]
	switch {
	case !ok:
		cur = v
	case cur >= limit:
		cur = limit
	default:
		cur += v
	}
	if cur > limit {
		cur = limit
	}
	m[k] = cur
	return cur
}

func (m pairMap) sumShop(shop ids.Address) float64 {
	total := 0.0
	for k, v := range m {
		if k.shop == shop {
			total += v
		}
	}
	return total
}

func (m pairMap) sumCustomer(customer ids.Address) float64 {
	total := 0.0
	for k, v := range m {
		if k.customer == customer {
			total += v
		}
	}
	return total
}

// nested copies the map into the customer -> shop -> value shape used by reports.
func (m pairMap) nested() map[ids.Address]map[ids.Address]float64 {
	out := make(map[ids.Address]map[ids.Address]float64)
	for k, v := range m {
		row, ok := out[k.customer]
		if !ok {
			row = make(map[ids.Address]float64)
			out[k.customer] = row
		}
		row[k.shop] = v
	}
	return out
}

// addressSet keeps insertion order so iteration over shops is deterministic.
type addressSet struct {
	index map[ids.Address]struct{}
	order []ids.Address
}

func newAddressSet() addressSet {
	return addressSet{index: map[ids.Address]struct{}{}}
}

func (s *addressSet) add(a ids.Address) bool {
	if _, ok := s.index[a]; ok {
		return false
	}
	s.index[a] = struct{}{}
	s.order = append(s.order, a)
	return true
}

func (s *addressSet) has(a ids.Address) bool {
	_, ok := s.index[a]
	return ok
}

func (s *addressSet) list() []ids.Address {
	out := make([]ids.Address, len(s.order))
	copy(out, s.order)
	return out
}

func sortedAddresses(in []ids.Address) []ids.Address {
	sort.Slice(in, func(i, j int) bool { return in[i] < in[j] })
	return in
}
