package ledger

import "reusability-token/internal/ids"

func (l *Ledger) Status() ClaimStatus {
	return l.claim.status
}

// Pending returns the pair awaiting verification, if any.
func (l *Ledger) Pending() (shop, customer ids.Address, ok bool) {
	if l.claim.status != StatusPending {
		return 0, 0, false
	}
	return l.claim.shop, l.claim.customer, true
}

func (l *Ledger) Coins(customer, shop ids.Address) float64 {
	return l.coins.get(customer, shop)
}

func (l *Ledger) Reputation(customer, shop ids.Address) float64 {
	return l.reputation.get(customer, shop)
}

// ShopReputation sums the reputation every customer holds with shop. It is
// also the amount of dues the shop owes.
func (l *Ledger) ShopReputation(shop ids.Address) float64 {
	return l.reputation.sumShop(shop)
}

func (l *Ledger) CustomerReputation(customer ids.Address) float64 {
	return l.reputation.sumCustomer(customer)
}

func (l *Ledger) CoinMap() map[ids.Address]map[ids.Address]float64 {
	return l.coins.nested()
}

func (l *Ledger) ReputationMap() map[ids.Address]map[ids.Address]float64 {
	return l.reputation.nested()
}

// CoinPurchaseMap counts coin purchases per customer.
func (l *Ledger) CoinPurchaseMap() map[ids.Address]int {
	out := make(map[ids.Address]int, len(l.customerPurchase))
	for k, v := range l.customerPurchase {
		out[k] = v
	}
	return out
}

// ShopCoinMap sums coins spent per shop.
func (l *Ledger) ShopCoinMap() map[ids.Address]float64 {
	out := make(map[ids.Address]float64, len(l.shopCoins))
	for k, v := range l.shopCoins {
		out[k] = v
	}
	return out
}

func (l *Ledger) KnownShops() []ids.Address {
	return l.knownShops.list()
}

func (l *Ledger) BlacklistedShops() []ids.Address {
	return sortedAddresses(l.blacklistedShops.list())
}

func (l *Ledger) IsBlacklisted(shop ids.Address) bool {
	return l.blacklistedShops.has(shop)
}

func (l *Ledger) PaymentTime(shop ids.Address) (int, bool) {
	t, ok := l.paymentTimes[shop]
	return t, ok
}
