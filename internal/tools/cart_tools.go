package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bottegalabs/bottega/internal/restaurant"
)

type addToCartInput struct {
	CustomerID          int64  `json:"customer_id" jsonschema_description:"Customer id owning the cart."`
	ItemID              int64  `json:"item_id" jsonschema_description:"Menu item id to add."`
	Quantity            int64  `json:"quantity" jsonschema_description:"Number of units; must be positive."`
	SpecialInstructions string `json:"special_instructions,omitempty" jsonschema_description:"Free-form preparation notes (optional)."`
	ConfigurationID     *int64 `json:"configuration_id,omitempty" jsonschema_description:"Chosen configuration id (optional)."`
	AddOnID             *int64 `json:"addon_id,omitempty" jsonschema_description:"Chosen add-on id (optional)."`
}

func (k *Toolkit) addToCartDefinition() Definition {
	return Definition{
		Name:        "add_to_cart",
		Description: "Add an item to the customer's cart with optional configuration, add-on, and special instructions. Matching lines are merged by summing quantities.",
		InputSchema: GenerateSchema[addToCartInput](),
		Handler:     k.addToCart,
	}
}

func (k *Toolkit) addToCart(ctx context.Context, input json.RawMessage) (string, error) {
	var in addToCartInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.CustomerID == 0 {
		return "", Validationf("customer_id is required")
	}
	if in.ItemID == 0 {
		return "", Validationf("item_id is required")
	}
	if in.Quantity <= 0 {
		return "", Validationf("quantity must be a positive integer")
	}

	err := k.store.AddToCart(ctx, restaurant.AddToCartParams{
		CustomerID:          in.CustomerID,
		ItemID:              in.ItemID,
		Quantity:            in.Quantity,
		SpecialInstructions: in.SpecialInstructions,
		ConfigurationID:     in.ConfigurationID,
		AddOnID:             in.AddOnID,
	})
	if errors.Is(err, restaurant.ErrNotFound) {
		return fmt.Sprintf("Error: no menu item with ID %d. Use get_menu_items to list valid items.", in.ItemID), nil
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Successfully added %d of item %d to the cart. Configuration ID: %s, Add-on ID: %s, Special instructions: %s",
		in.Quantity, in.ItemID,
		optionalID(in.ConfigurationID), optionalID(in.AddOnID), orNone(in.SpecialInstructions)), nil
}

type viewCartInput struct {
	CustomerID int64 `json:"customer_id" jsonschema_description:"Customer id whose cart to show."`
}

func (k *Toolkit) viewCartDefinition() Definition {
	return Definition{
		Name:        "view_cart",
		Description: "Fetch the items in the customer's cart, including configurations and add-ons.",
		InputSchema: GenerateSchema[viewCartInput](),
		Handler:     k.viewCart,
	}
}

func (k *Toolkit) viewCart(ctx context.Context, input json.RawMessage) (string, error) {
	var in viewCartInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.CustomerID == 0 {
		return "", Validationf("customer_id is required")
	}

	lines, err := k.store.ViewCart(ctx, in.CustomerID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "[]", nil
	}
	return marshalJSON(lines)
}

type updateCartItemInput struct {
	CustomerID             int64   `json:"customer_id" jsonschema_description:"Customer id owning the cart."`
	CartItemID             int64   `json:"cart_item_id" jsonschema_description:"Cart line id to update."`
	NewQuantity            *int64  `json:"new_quantity,omitempty" jsonschema_description:"New quantity; 0 removes the line (optional)."`
	NewSpecialInstructions *string `json:"new_special_instructions,omitempty" jsonschema_description:"Replacement preparation notes (optional)."`
	NewConfigurationID     *int64  `json:"new_configuration_id,omitempty" jsonschema_description:"Replacement configuration id (optional)."`
	NewAddOnID             *int64  `json:"new_addon_id,omitempty" jsonschema_description:"Replacement add-on id (optional)."`
}

func (k *Toolkit) updateCartItemDefinition() Definition {
	return Definition{
		Name:        "update_cart_item",
		Description: "Update the quantity, special instructions, configuration, or add-on of a cart line, or remove it by setting quantity to 0.",
		InputSchema: GenerateSchema[updateCartItemInput](),
		Handler:     k.updateCartItem,
	}
}

func (k *Toolkit) updateCartItem(ctx context.Context, input json.RawMessage) (string, error) {
	var in updateCartItemInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.CustomerID == 0 {
		return "", Validationf("customer_id is required")
	}
	if in.CartItemID == 0 {
		return "", Validationf("cart_item_id is required")
	}
	if in.NewQuantity != nil && *in.NewQuantity < 0 {
		return "", Validationf("new_quantity cannot be negative")
	}

	line, removed, err := k.store.UpdateCartItem(ctx, restaurant.UpdateCartItemParams{
		CustomerID:         in.CustomerID,
		CartItemID:         in.CartItemID,
		NewQuantity:        in.NewQuantity,
		NewInstructions:    in.NewSpecialInstructions,
		NewConfigurationID: in.NewConfigurationID,
		NewAddOnID:         in.NewAddOnID,
	})
	if errors.Is(err, restaurant.ErrNotFound) {
		return fmt.Sprintf("Error: Cart item %d not found for this customer.", in.CartItemID), nil
	}
	if err != nil {
		return "", err
	}
	if removed {
		return fmt.Sprintf("Item '%s' has been removed from your cart.", line.ItemName), nil
	}
	return fmt.Sprintf("Cart updated. '%s' - Quantity: %d, Configuration: %s, Add-on: %s, Special Instructions: %s",
		line.ItemName, line.Quantity, orNone(line.Configuration), orNone(line.AddOn), orNone(line.SpecialInstructions)), nil
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func optionalID(v *int64) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *v)
}
