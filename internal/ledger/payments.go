package ledger

import "reusability-token/internal/ids"

// PaymentCheck selects how CheckPayments decides that a shop is overdue.
type PaymentCheck string

const (
	// PaymentCheckReference blacklists when lastPayment-day >= due. Since the
	// difference is never positive once time moves on, shops are effectively
	// never blacklisted. This is the behaviour the market was calibrated with.
	PaymentCheckReference PaymentCheck = "reference"
	// PaymentCheckOverdue blacklists when day-lastPayment >= due.
	PaymentCheckOverdue PaymentCheck = "overdue"
)

func (p PaymentCheck) Valid() bool {
	return p == PaymentCheckReference || p == PaymentCheckOverdue
}

func (p PaymentCheck) overdue(lastPayment, day, due int) bool {
	if p == PaymentCheckOverdue {
		return day-lastPayment >= due
	}
	return lastPayment-day >= due
}

// CheckPayments blacklists every known shop whose dues are late. Known shops
// that never had a successful claim have no payment clock yet and are skipped.
// It returns the shops newly blacklisted by this call.
func (l *Ledger) CheckPayments(sender ids.Address, day int) ([]ids.Address, bool) {
	if sender != l.owner {
		return nil, false
	}
	var added []ids.Address
	for _, shop := range l.knownShops.list() {
		last, ok := l.paymentTimes[shop]
		if !ok {
			continue
		}
		if l.paymentCheck.overdue(last, day, l.paymentDueDays) && l.blacklistedShops.add(shop) {
			added = append(added, shop)
		}
	}
	return added, true
}

// MakePayment attests that shop paid amount in dues. The amount must cover
// the reputation the shop has handed out; nothing is transferred.
func (l *Ledger) MakePayment(shop ids.Address, amount float64) bool {
	if !l.knownShops.has(shop) {
		return false
	}
	if amount < l.ShopReputation(shop) {
		return false
	}
	if l.clock == nil {
		return false
	}
	l.paymentTimes[shop] = l.clock.Now()
	return true
}

// ValidShopsLeft is false once every listed shop is blacklisted.
func (l *Ledger) ValidShopsLeft(shops []ids.Address) bool {
	for _, shop := range shops {
		if !l.blacklistedShops.has(shop) {
			return true
		}
	}
	return false
}
