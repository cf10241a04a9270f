package agents

import "reusability-token/internal/ids"

// DuesPayee receives dues from a shop.
type DuesPayee interface {
	MakePayment(shop ids.Address, amount float64) bool
}

type Shop struct {
	address   ids.Address
	name      string
	coinCount float64
}

func NewShop(address ids.Address) *Shop {
	return &Shop{address: address, name: "shop " + address.String()}
}

func (s *Shop) Address() ids.Address { return s.address }
func (s *Shop) Name() string         { return s.name }
func (s *Shop) CoinCount() float64   { return s.coinCount }

func (s *Shop) BuyWithCoins(amount float64) {
	s.coinCount += amount
}

// PayDues offers everything the shop has collected. Payment is an
// attestation, so the coin count is left as is.
func (s *Shop) PayDues(payee DuesPayee) bool {
	return payee.MakePayment(s.address, s.coinCount)
}
