package ledger

import (
	"math"

	"reusability-token/internal/ids"
)

type RejectReason string

const (
	ReasonNone        RejectReason = ""
	ReasonNotPending  RejectReason = "not_pending"
	ReasonNoRegistry  RejectReason = "no_registry"
	ReasonUnknownShop RejectReason = "unknown_shop"
	ReasonBlacklisted RejectReason = "blacklisted"
	ReasonMismatch    RejectReason = "mismatch"
)

// Verdict is the outcome of VerifyClaim. A rejected verdict carries -1 for
// both grants.
type Verdict struct {
	Accepted   bool
	Coins      float64
	Reputation float64
	Reason     RejectReason
}

func rejected(reason RejectReason) Verdict {
	return Verdict{Coins: -1, Reputation: -1, Reason: reason}
}

// OpenClaim records a recycling claim for (shop, customer). Only one claim can
// be in flight across the whole ledger; a second call before verification
// fails and leaves the pending pair untouched.
func (l *Ledger) OpenClaim(shop, customer ids.Address) bool {
	if l.claim.status != StatusReady {
		return false
	}
	l.claim = pendingClaim{status: StatusPending, customer: customer, shop: shop}
	return true
}

// VerifyClaim is called by the shop to confirm the pending claim. Every path
// that gets past the pending check returns the ledger to ready.
func (l *Ledger) VerifyClaim(shop, customer ids.Address) Verdict {
	if l.claim.status != StatusPending {
		return rejected(ReasonNotPending)
	}
	if l.registry == nil {
		l.resetClaim()
		return rejected(ReasonNoRegistry)
	}
	if !l.knownShops.has(shop) {
		if !l.registry.VerifyShop(shop) {
			l.resetClaim()
			return rejected(ReasonUnknownShop)
		}
		l.knownShops.add(shop)
	}
	if l.blacklistedShops.has(shop) {
		l.resetClaim()
		return rejected(ReasonBlacklisted)
	}
	matches := l.claim.customer == customer && l.claim.shop == shop
	l.resetClaim()
	if !matches {
		return rejected(ReasonMismatch)
	}

	prior := l.reputation.get(customer, shop)
	coins := l.newCoins(prior)
	rep := l.newReputation(prior)
	l.coins.grant(customer, shop, coins, l.coinLimit)
	l.reputation.grant(customer, shop, rep, l.reputationLimit)

	if _, ok := l.paymentTimes[shop]; !ok {
		l.paymentTimes[shop] = l.now()
	}
	return Verdict{Accepted: true, Coins: coins, Reputation: rep}
}

func (l *Ledger) resetClaim() {
	l.claim.status = StatusReady
}

// newCoins approaches coinLimit as reputation grows but never reaches it.
func (l *Ledger) newCoins(prior float64) float64 {
	x := prior * l.coinsPerReputationToken
	return diminishingReturns(l.coinLimit, x)
}

func (l *Ledger) newReputation(prior float64) float64 {
	return diminishingReturns(l.reputationLimit, prior+1)
}

func diminishingReturns(limit, x float64) float64 {
	return limit - math.Exp(math.Log(limit)-0.1*x)
}

// CustomerBuysWithCoin spends coins the customer earned at shop. There is no
// floor: the balance may go negative.
func (l *Ledger) CustomerBuysWithCoin(customer, shop ids.Address, amount float64) {
	l.coins.set(customer, shop, l.coins.get(customer, shop)-amount)
	l.shopCoins[shop] += amount
	l.customerPurchase[customer]++
}

// DecayReputation lowers every reputation entry by amount, never below zero.
func (l *Ledger) DecayReputation(sender ids.Address, amount float64) bool {
	if sender != l.owner {
		return false
	}
	for k, v := range l.reputation {
		v -= amount
		if v < 0 {
			v = 0
		}
		l.reputation[k] = v
	}
	return true
}

func (l *Ledger) now() int {
	if l.clock == nil {
		return 0
	}
	return l.clock.Now()
}
