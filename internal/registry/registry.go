package registry

import "reusability-token/internal/ids"

// Registry is the list of shops allowed to take part in the market.
type Registry struct {
	shops map[ids.Address]struct{}
	order []ids.Address
}

func New() *Registry {
	return &Registry{shops: map[ids.Address]struct{}{}}
}

func (r *Registry) VerifyShop(shop ids.Address) bool {
	_, ok := r.shops[shop]
	return ok
}

// RegisterNewShop is idempotent.
func (r *Registry) RegisterNewShop(shop ids.Address) {
	if _, ok := r.shops[shop]; ok {
		return
	}
	r.shops[shop] = struct{}{}
	r.order = append(r.order, shop)
}

func (r *Registry) Shops() []ids.Address {
	out := make([]ids.Address, len(r.order))
	copy(out, r.order)
	return out
}
