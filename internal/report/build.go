package report

import (
	"sort"

	"reusability-token/internal/ids"
)

// LedgerView is the read-only part of the ledger a snapshot needs.
type LedgerView interface {
	CustomerReputation(customer ids.Address) float64
	ShopReputation(shop ids.Address) float64
	CoinPurchaseMap() map[ids.Address]int
	BlacklistedShops() []ids.Address
}

type ShopView interface {
	Address() ids.Address
	CoinCount() float64
}

// Build snapshots the aggregates for one day. Customers and shops keep the
// order they are given in; purchase counts include every customer, zero or not.
func Build(day, time int, l LedgerView, customers []ids.Address, shops []ShopView) Day {
	d := Day{
		Day:                day,
		Time:               time,
		CustomerReputation: make([]Entry, 0, len(customers)),
		ShopReputation:     make([]Entry, 0, len(shops)),
		CoinPurchases:      make([]Count, 0, len(customers)),
		ShopCoins:          make([]Entry, 0, len(shops)),
		Blacklisted:        l.BlacklistedShops(),
		Claims:             NewClaimStats(),
	}
	purchases := l.CoinPurchaseMap()
	for _, c := range customers {
		d.CustomerReputation = append(d.CustomerReputation, Entry{Address: c, Value: l.CustomerReputation(c)})
		d.CoinPurchases = append(d.CoinPurchases, Count{Address: c, Count: purchases[c]})
	}
	for _, s := range shops {
		d.ShopReputation = append(d.ShopReputation, Entry{Address: s.Address(), Value: l.ShopReputation(s.Address())})
		d.ShopCoins = append(d.ShopCoins, Entry{Address: s.Address(), Value: s.CoinCount()})
	}
	return d
}

// TopCustomers returns the n customers with the highest aggregate reputation.
func (d Day) TopCustomers(n int) []Entry {
	out := make([]Entry, len(d.CustomerReputation))
	copy(out, d.CustomerReputation)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func (d Day) TotalShopReputation() float64 {
	total := 0.0
	for _, e := range d.ShopReputation {
		total += e.Value
	}
	return total
}
