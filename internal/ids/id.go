package ids

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Address identifies a customer, a shop or the ledger owner.
type Address int64

func (a Address) String() string {
	return strconv.FormatInt(int64(a), 10)
}

var (
	ulidEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	ulidEntropyMu sync.Mutex
)

// NewRunID returns a sortable identifier for one simulation run.
func NewRunID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// Allocator hands out sequential addresses. Customers and shops each get
// their own allocator, so the two namespaces may overlap.
type Allocator struct {
	next Address
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

func (a *Allocator) Next() Address {
	id := a.next
	a.next++
	return id
}

// Allocated reports how many addresses have been handed out.
func (a *Allocator) Allocated() int {
	return int(a.next)
}

// MaxShops bounds a shop population so that sequential shop addresses never
// reach the owner range.
const MaxShops = OwnerAddressMin

const (
	OwnerAddressMin = 200000
	ownerAddressMax = 3300000
)

// OwnerAddress draws the ledger owner's address from a range that stays clear
// of realistic customer and shop populations.
func OwnerAddress(intn func(n int) int) Address {
	return Address(OwnerAddressMin + intn(ownerAddressMax-OwnerAddressMin))
}
