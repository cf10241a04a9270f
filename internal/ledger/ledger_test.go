package ledger

import (
	"math"
	"testing"

	"reusability-token/internal/clock"
	"reusability-token/internal/ids"
	"reusability-token/internal/registry"
)

const testOwner ids.Address = 424242

func newTestLedger(t *testing.T, shops ...ids.Address) (*Ledger, *clock.Clock) {
	t.Helper()
	reg := registry.New()
	for _, s := range shops {
		reg.RegisterNewShop(s)
	}
	clk := clock.New()
	l := New(testOwner)
	if !l.SetOracles(testOwner, reg, clk) {
		t.Fatal("owner could not set oracles")
	}
	l.SetCoinLimit(testOwner, 200)
	l.SetReputationLimit(testOwner, 100)
	l.SetCoinsPerReputationToken(testOwner, 1)
	l.SetPaymentDuration(testOwner, 30)
	return l, clk
}

func claim(t *testing.T, l *Ledger, shop, customer ids.Address) Verdict {
	t.Helper()
	if !l.OpenClaim(shop, customer) {
		t.Fatalf("OpenClaim(%d, %d) failed", shop, customer)
	}
	return l.VerifyClaim(shop, customer)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOpenClaimSingleInFlight(t *testing.T) {
	l, _ := newTestLedger(t, 1, 2)
	if !l.OpenClaim(1, 10) {
		t.Fatal("first OpenClaim should succeed")
	}
	if l.OpenClaim(2, 20) {
		t.Fatal("second OpenClaim should fail while a claim is pending")
	}
	shop, customer, ok := l.Pending()
	if !ok || shop != 1 || customer != 10 {
		t.Fatalf("pending = (%d, %d, %v), want (1, 10, true)", shop, customer, ok)
	}
	if v := l.VerifyClaim(1, 10); !v.Accepted {
		t.Fatalf("verify of original pair rejected: %+v", v)
	}
	if l.Status() != StatusReady {
		t.Fatalf("status = %s, want ready", l.Status())
	}
}

func TestVerifyWithoutPendingClaim(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	v := l.VerifyClaim(1, 10)
	if v.Accepted || v.Coins != -1 || v.Reputation != -1 || v.Reason != ReasonNotPending {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

func TestVerifyMismatchResetsToReady(t *testing.T) {
	tests := []struct {
		name     string
		shop     ids.Address
		customer ids.Address
	}{
		{name: "wrong customer", shop: 1, customer: 11},
		{name: "wrong shop", shop: 2, customer: 10},
		{name: "both wrong", shop: 2, customer: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t, 1, 2)
			l.OpenClaim(1, 10)
			v := l.VerifyClaim(tt.shop, tt.customer)
			if v.Accepted || v.Coins != -1 || v.Reputation != -1 {
				t.Fatalf("verdict = %+v, want (false, -1, -1)", v)
			}
			if v.Reason != ReasonMismatch {
				t.Fatalf("reason = %q, want mismatch", v.Reason)
			}
			if l.Status() != StatusReady {
				t.Fatalf("status = %s, want ready", l.Status())
			}
			if len(l.CoinMap()) != 0 || len(l.ReputationMap()) != 0 {
				t.Fatal("rejected claim must not grant anything")
			}
		})
	}
}

func TestVerifyUnknownShopIsNotRegistered(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	l.OpenClaim(9, 10)
	v := l.VerifyClaim(9, 10)
	if v.Accepted || v.Reason != ReasonUnknownShop {
		t.Fatalf("verdict = %+v, want unknown_shop rejection", v)
	}
	if len(l.KnownShops()) != 0 {
		t.Fatalf("known shops = %v, want none", l.KnownShops())
	}
	if l.Status() != StatusReady {
		t.Fatalf("status = %s, want ready", l.Status())
	}
}

func TestVerifyWithoutRegistry(t *testing.T) {
	l := New(testOwner)
	l.OpenClaim(1, 10)
	v := l.VerifyClaim(1, 10)
	if v.Accepted || v.Reason != ReasonNoRegistry {
		t.Fatalf("verdict = %+v, want no_registry rejection", v)
	}
	if l.Status() != StatusReady {
		t.Fatalf("status = %s, want ready", l.Status())
	}
}

func TestFirstClaimScenario(t *testing.T) {
	l, clk := newTestLedger(t, 1)
	clk.Increment()

	v := claim(t, l, 1, 10)
	if !v.Accepted {
		t.Fatalf("claim rejected: %+v", v)
	}
	// With no prior reputation the coin curve starts at zero.
	wantCoins := 200 - math.Exp(math.Log(200))
	wantRep := 100 - math.Exp(math.Log(100)-0.1)
	if !almostEqual(v.Coins, wantCoins) {
		t.Fatalf("coins = %v, want %v", v.Coins, wantCoins)
	}
	if !almostEqual(v.Reputation, wantRep) || math.Abs(v.Reputation-9.516) > 0.001 {
		t.Fatalf("reputation = %v, want %v", v.Reputation, wantRep)
	}
	if got := l.Coins(10, 1); got != v.Coins {
		t.Fatalf("coin map = %v, want exactly %v", got, v.Coins)
	}
	if got := l.Reputation(10, 1); got != v.Reputation {
		t.Fatalf("reputation map = %v, want exactly %v", got, v.Reputation)
	}
	if last, ok := l.PaymentTime(1); !ok || last != 1 {
		t.Fatalf("payment time = (%d, %v), want (1, true)", last, ok)
	}
	known := l.KnownShops()
	if len(known) != 1 || known[0] != 1 {
		t.Fatalf("known shops = %v, want [1]", known)
	}
}

func TestClaimWithUnitPriorReputation(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	l.reputation.set(10, 1, 1)

	v := claim(t, l, 1, 10)
	if !v.Accepted {
		t.Fatalf("claim rejected: %+v", v)
	}
	if math.Abs(v.Coins-19.0325) > 0.001 {
		t.Fatalf("coins = %v, want ~19.03", v.Coins)
	}
	if got := l.Coins(10, 1); got != v.Coins {
		t.Fatalf("coin map = %v, want exactly %v", got, v.Coins)
	}
}

func TestDiminishingReturnsMonotone(t *testing.T) {
	l, _ := newTestLedger(t)
	priors := []float64{0, 0.5, 1, 5, 10, 50, 100, 250}
	for i := 1; i < len(priors); i++ {
		a, b := priors[i-1], priors[i]
		if ca, cb := l.newCoins(a), l.newCoins(b); ca > cb || cb >= l.CoinLimit() {
			t.Fatalf("newCoins(%v)=%v newCoins(%v)=%v limit=%v", a, ca, b, cb, l.CoinLimit())
		}
		if ra, rb := l.newReputation(a), l.newReputation(b); ra > rb || rb >= l.ReputationLimit() {
			t.Fatalf("newReputation(%v)=%v newReputation(%v)=%v limit=%v", a, ra, b, rb, l.ReputationLimit())
		}
	}
}

func TestGrantsNeverExceedLimits(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	for i := 0; i < 100; i++ {
		v := claim(t, l, 1, 10)
		if !v.Accepted {
			t.Fatalf("claim %d rejected: %+v", i, v)
		}
		if c := l.Coins(10, 1); c > l.CoinLimit() {
			t.Fatalf("claim %d: coins %v exceed limit", i, c)
		}
		if r := l.Reputation(10, 1); r > l.ReputationLimit() {
			t.Fatalf("claim %d: reputation %v exceeds limit", i, r)
		}
	}
	if l.Coins(10, 1) != l.CoinLimit() || l.Reputation(10, 1) != l.ReputationLimit() {
		t.Fatalf("expected both balances at cap, got coins=%v rep=%v", l.Coins(10, 1), l.Reputation(10, 1))
	}
	claim(t, l, 1, 10)
	if l.Coins(10, 1) != l.CoinLimit() || l.Reputation(10, 1) != l.ReputationLimit() {
		t.Fatal("grant at cap changed the capped value")
	}
}

func TestNonOwnerCannotConfigure(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	const intruder ids.Address = 7
	if l.SetCoinLimit(intruder, 1) || l.SetReputationLimit(intruder, 1) ||
		l.SetCoinsPerReputationToken(intruder, 9) || l.SetPaymentDuration(intruder, 1) ||
		l.SetPaymentCheck(intruder, PaymentCheckOverdue) || l.SetOracles(intruder, nil, nil) {
		t.Fatal("non-owner setter reported success")
	}
	if l.CoinLimit() != 200 || l.ReputationLimit() != 100 || l.CoinsPerReputationToken() != 1 ||
		l.PaymentDueDays() != 30 || l.PaymentCheck() != PaymentCheckReference {
		t.Fatal("non-owner changed ledger configuration")
	}
	if v := claim(t, l, 1, 10); !v.Accepted {
		t.Fatalf("oracles were replaced by non-owner: %+v", v)
	}
	l.SetPaymentCheck(testOwner, PaymentCheckOverdue)
	if _, ok := l.CheckPayments(intruder, 1000); ok {
		t.Fatal("non-owner CheckPayments reported success")
	}
	if len(l.BlacklistedShops()) != 0 {
		t.Fatal("non-owner CheckPayments blacklisted a shop")
	}
	if l.DecayReputation(intruder, 100) || l.Reputation(10, 1) == 0 {
		t.Fatal("non-owner decayed reputation")
	}
}

func TestSetPaymentCheckRejectsUnknownPolicy(t *testing.T) {
	l, _ := newTestLedger(t)
	if l.SetPaymentCheck(testOwner, PaymentCheck("weekly")) {
		t.Fatal("unknown policy accepted")
	}
	if l.PaymentCheck() != PaymentCheckReference {
		t.Fatalf("policy = %s, want reference", l.PaymentCheck())
	}
}

func TestCheckPaymentsPolicies(t *testing.T) {
	tests := []struct {
		name        string
		check       PaymentCheck
		lastPayment int
		day         int
		want        bool
	}{
		{name: "reference never trips once time passes", check: PaymentCheckReference, lastPayment: 1, day: 500, want: false},
		{name: "reference trips on future payment", check: PaymentCheckReference, lastPayment: 40, day: 5, want: true},
		{name: "overdue within window", check: PaymentCheckOverdue, lastPayment: 1, day: 30, want: false},
		{name: "overdue at window", check: PaymentCheckOverdue, lastPayment: 1, day: 31, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t, 1)
			l.SetPaymentCheck(testOwner, tt.check)
			claim(t, l, 1, 10)
			l.paymentTimes[1] = tt.lastPayment
			added, ok := l.CheckPayments(testOwner, tt.day)
			if !ok {
				t.Fatal("owner CheckPayments rejected")
			}
			if got := l.IsBlacklisted(1); got != tt.want {
				t.Fatalf("blacklisted = %v, want %v", got, tt.want)
			}
			if tt.want && len(added) != 1 {
				t.Fatalf("added = %v, want [1]", added)
			}
			again, _ := l.CheckPayments(testOwner, tt.day)
			if len(again) != 0 || len(l.BlacklistedShops()) > 1 {
				t.Fatal("CheckPayments is not idempotent")
			}
		})
	}
}

func TestCheckPaymentsSkipsShopsWithoutPaymentClock(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	l.SetPaymentCheck(testOwner, PaymentCheckOverdue)
	l.OpenClaim(1, 10)
	l.VerifyClaim(1, 11)
	if len(l.KnownShops()) != 1 {
		t.Fatal("shop should be known after a verified lookup")
	}
	l.CheckPayments(testOwner, 1000)
	if l.IsBlacklisted(1) {
		t.Fatal("shop without a payment clock was blacklisted")
	}
}

func TestBlacklistIsPermanent(t *testing.T) {
	l, clk := newTestLedger(t, 1, 2)
	l.SetPaymentCheck(testOwner, PaymentCheckOverdue)
	clk.Increment()
	claim(t, l, 1, 10)
	claim(t, l, 2, 10)
	for i := 0; i < 40; i++ {
		clk.Increment()
	}
	if !l.MakePayment(2, l.ShopReputation(2)) {
		t.Fatal("shop 2 payment rejected")
	}
	l.CheckPayments(testOwner, clk.Now())
	if !l.IsBlacklisted(1) || l.IsBlacklisted(2) {
		t.Fatalf("blacklist = %v, want [1]", l.BlacklistedShops())
	}

	// Paying afterwards does not lift the ban.
	if !l.MakePayment(1, 1e9) {
		t.Fatal("payment from blacklisted but known shop rejected")
	}
	for _, customer := range []ids.Address{10, 11, 12} {
		v := claim(t, l, 1, customer)
		if v.Accepted || v.Reason != ReasonBlacklisted {
			t.Fatalf("customer %d: verdict = %+v, want blacklisted", customer, v)
		}
		if l.Status() != StatusReady {
			t.Fatalf("customer %d: status = %s, want ready", customer, l.Status())
		}
	}
}

func TestMakePayment(t *testing.T) {
	l, clk := newTestLedger(t, 1)
	if l.MakePayment(1, 1000) {
		t.Fatal("payment from unknown shop accepted")
	}
	claim(t, l, 1, 10)
	claim(t, l, 1, 11)
	due := l.ShopReputation(1)
	clk.Increment()
	clk.Increment()
	if l.MakePayment(1, due-0.01) {
		t.Fatal("underpayment accepted")
	}
	if last, _ := l.PaymentTime(1); last != 0 {
		t.Fatalf("payment time moved on underpayment: %d", last)
	}
	if !l.MakePayment(1, due) {
		t.Fatal("full payment rejected")
	}
	if last, _ := l.PaymentTime(1); last != 2 {
		t.Fatalf("payment time = %d, want 2", last)
	}
}

func TestValidShopsLeft(t *testing.T) {
	l, _ := newTestLedger(t, 1, 2)
	shops := []ids.Address{1, 2}
	if !l.ValidShopsLeft(shops) {
		t.Fatal("no shops blacklisted yet")
	}
	l.knownShops.add(1)
	l.blacklistedShops.add(1)
	if !l.ValidShopsLeft(shops) {
		t.Fatal("shop 2 is still valid")
	}
	l.knownShops.add(2)
	l.blacklistedShops.add(2)
	if l.ValidShopsLeft(shops) {
		t.Fatal("every shop is blacklisted")
	}
}

func TestCustomerBuysWithCoin(t *testing.T) {
	l, _ := newTestLedger(t, 1)
	l.reputation.set(10, 1, 5)
	claim(t, l, 1, 10)
	before := l.Coins(10, 1)
	l.CustomerBuysWithCoin(10, 1, 10000)
	l.CustomerBuysWithCoin(10, 1, 10000)
	if got := l.Coins(10, 1); !almostEqual(got, before-20000) {
		t.Fatalf("coins = %v, want %v", got, before-20000)
	}
	if got := l.ShopCoinMap()[1]; got != 20000 {
		t.Fatalf("shop coins = %v, want 20000", got)
	}
	if got := l.CoinPurchaseMap()[10]; got != 2 {
		t.Fatalf("purchases = %d, want 2", got)
	}
}

func TestDecayReputationFloorsAtZero(t *testing.T) {
	l, _ := newTestLedger(t, 1, 2)
	l.reputation.set(10, 1, 50)
	l.reputation.set(10, 2, 12)
	if !l.DecayReputation(testOwner, 30) {
		t.Fatal("owner decay rejected")
	}
	if got := l.Reputation(10, 1); got != 20 {
		t.Fatalf("rep(10,1) = %v, want 20", got)
	}
	if got := l.Reputation(10, 2); got != 0 {
		t.Fatalf("rep(10,2) = %v, want 0", got)
	}
}

func TestAggregateReputation(t *testing.T) {
	l, _ := newTestLedger(t)
	l.reputation.set(10, 1, 3)
	l.reputation.set(11, 1, 4)
	l.reputation.set(10, 2, 5)
	if got := l.ShopReputation(1); got != 7 {
		t.Fatalf("ShopReputation(1) = %v, want 7", got)
	}
	if got := l.CustomerReputation(10); got != 8 {
		t.Fatalf("CustomerReputation(10) = %v, want 8", got)
	}
	snap := l.ReputationMap()
	snap[10][1] = 999
	if l.Reputation(10, 1) != 3 {
		t.Fatal("snapshot aliases ledger state")
	}
}
