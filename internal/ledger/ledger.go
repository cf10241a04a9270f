// Package ledger is the in-process "smart contract" of the market. It owns every
// coin and reputation balance, serializes claim verification through a single
// pending slot, and tracks which shops keep up with their dues.
package ledger

import "reusability-token/internal/ids"

type ClaimStatus string

const (
	StatusReady   ClaimStatus = "ready"
	StatusPending ClaimStatus = "pending"
)

// ShopVerifier answers whether a shop address belongs to a registered shop.
type ShopVerifier interface {
	VerifyShop(shop ids.Address) bool
}

// TimeSource reports the current simulated day.
type TimeSource interface {
	Now() int
}

const (
	DefaultCoinLimit               = 100.0
	DefaultReputationLimit         = 100.0
	DefaultCoinsPerReputationToken = 1.0
	DefaultPaymentDueDays          = 30
)

type pendingClaim struct {
	status   ClaimStatus
	customer ids.Address
	shop     ids.Address
}

type Ledger struct {
	owner ids.Address

	registry ShopVerifier
	clock    TimeSource

	coinLimit               float64
	reputationLimit         float64
	coinsPerReputationToken float64
	paymentDueDays          int
	paymentCheck            PaymentCheck

	coins            pairMap
	reputation       pairMap
	shopCoins        map[ids.Address]float64
	customerPurchase map[ids.Address]int

	knownShops       addressSet
	blacklistedShops addressSet
	paymentTimes     map[ids.Address]int

	claim pendingClaim
}

func New(owner ids.Address) *Ledger {
	return &Ledger{
		owner:                   owner,
		coinLimit:               DefaultCoinLimit,
		reputationLimit:         DefaultReputationLimit,
		coinsPerReputationToken: DefaultCoinsPerReputationToken,
		paymentDueDays:          DefaultPaymentDueDays,
		paymentCheck:            PaymentCheckReference,
		coins:                   pairMap{},
		reputation:              pairMap{},
		shopCoins:               map[ids.Address]float64{},
		customerPurchase:        map[ids.Address]int{},
		knownShops:              newAddressSet(),
		blacklistedShops:        newAddressSet(),
		paymentTimes:            map[ids.Address]int{},
		claim:                   pendingClaim{status: StatusReady, customer: -1, shop: -1},
	}
}

func (l *Ledger) Owner() ids.Address {
	return l.owner
}

// Every setter below is owner-only. Calls from any other sender are ignored
// and report false; they are not errors.

func (l *Ledger) SetOracles(sender ids.Address, registry ShopVerifier, clock TimeSource) bool {
	if sender != l.owner {
		return false
	}
	l.registry = registry
	l.clock = clock
	return true
}

func (l *Ledger) SetCoinLimit(sender ids.Address, limit float64) bool {
	if sender != l.owner {
		return false
	}
	l.coinLimit = limit
	return true
}

func (l *Ledger) SetReputationLimit(sender ids.Address, limit float64) bool {
	if sender != l.owner {
		return false
	}
	l.reputationLimit = limit
	return true
}

func (l *Ledger) SetCoinsPerReputationToken(sender ids.Address, factor float64) bool {
	if sender != l.owner {
		return false
	}
	l.coinsPerReputationToken = factor
	return true
}

func (l *Ledger) SetPaymentDuration(sender ids.Address, days int) bool {
	if sender != l.owner {
		return false
	}
	l.paymentDueDays = days
	return true
}

func (l *Ledger) SetPaymentCheck(sender ids.Address, check PaymentCheck) bool {
	if sender != l.owner || !check.Valid() {
		return false
	}
	l.paymentCheck = check
	return true
}

func (l *Ledger) CoinLimit() float64               { return l.coinLimit }
func (l *Ledger) ReputationLimit() float64         { return l.reputationLimit }
func (l *Ledger) CoinsPerReputationToken() float64 { return l.coinsPerReputationToken }
func (l *Ledger) PaymentDueDays() int              { return l.paymentDueDays }
func (l *Ledger) PaymentCheck() PaymentCheck       { return l.paymentCheck }
