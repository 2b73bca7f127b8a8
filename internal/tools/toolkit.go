package tools

import (
	"github.com/bottegalabs/bottega/internal/payments"
	"github.com/bottegalabs/bottega/internal/restaurant"
	"github.com/bottegalabs/bottega/internal/sms"
)

// Toolkit owns the restaurant tool handlers and their backing
// collaborators. Handlers only format and validate; all SQL lives in
// the restaurant store.
type Toolkit struct {
	store           *restaurant.Store
	sms             sms.Sender
	payments        payments.LinkCreator
	restaurantPhone string
}

// NewToolkit creates the restaurant toolkit.
func NewToolkit(store *restaurant.Store, sender sms.Sender, links payments.LinkCreator, restaurantPhone string) *Toolkit {
	return &Toolkit{
		store:           store,
		sms:             sender,
		payments:        links,
		restaurantPhone: restaurantPhone,
	}
}

// Definitions returns all restaurant tools in workflow order. All are
// safe by default; MarkSensitive applies deployment overrides before
// registration.
func (k *Toolkit) Definitions() []Definition {
	return []Definition{
		k.createOrUpdateCustomerDefinition(),
		k.updateCustomerAddressDefinition(),
		k.checkCustomerExistsDefinition(),
		k.fetchCustomerOrdersDefinition(),
		k.getMenuCategoriesDefinition(),
		k.getMenuItemsDefinition(),
		k.getItemOptionsDefinition(),
		k.addToCartDefinition(),
		k.viewCartDefinition(),
		k.updateCartItemDefinition(),
		k.placeOrderDefinition(),
		k.getOrderStatusDefinition(),
	}
}

// MarkSensitive returns a copy of defs with the named tools classified
// sensitive. Classification happens once, before registration.
func MarkSensitive(defs []Definition, names []string) []Definition {
	if len(names) == 0 {
		return defs
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	out := make([]Definition, len(defs))
	for i, d := range defs {
		d.Sensitive = d.Sensitive || set[d.Name]
		out[i] = d
	}
	return out
}

// RegisterAll registers every definition, failing on the first error.
func RegisterAll(reg *Registry, defs []Definition) error {
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
