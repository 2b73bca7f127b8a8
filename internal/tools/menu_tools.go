package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bottegalabs/bottega/internal/restaurant"
)

type getMenuCategoriesInput struct{}

func (k *Toolkit) getMenuCategoriesDefinition() Definition {
	return Definition{
		Name:        "get_menu_categories",
		Description: "Fetch all menu categories.",
		InputSchema: GenerateSchema[getMenuCategoriesInput](),
		Handler:     k.getMenuCategories,
	}
}

func (k *Toolkit) getMenuCategories(ctx context.Context, input json.RawMessage) (string, error) {
	cats, err := k.store.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	if len(cats) == 0 {
		return "[]", nil
	}
	return marshalJSON(cats)
}

type getMenuItemsInput struct {
	CategoryID int64 `json:"category_id,omitempty" jsonschema_description:"Optional category id to filter by; omit for the full menu."`
}

func (k *Toolkit) getMenuItemsDefinition() Definition {
	return Definition{
		Name:        "get_menu_items",
		Description: "Fetch menu items, optionally filtered by category, including configurations and add-ons.",
		InputSchema: GenerateSchema[getMenuItemsInput](),
		Handler:     k.getMenuItems,
	}
}

func (k *Toolkit) getMenuItems(ctx context.Context, input json.RawMessage) (string, error) {
	var in getMenuItemsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", Validationf("invalid arguments: %v", err)
		}
	}

	items, err := k.store.ListItems(ctx, in.CategoryID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "[]", nil
	}
	return marshalJSON(items)
}

type getItemOptionsInput struct {
	ItemID int64 `json:"item_id" jsonschema_description:"Menu item id to fetch configurations and add-ons for."`
}

func (k *Toolkit) getItemOptionsDefinition() Definition {
	return Definition{
		Name:        "get_item_options",
		Description: "Fetch available configurations and add-ons for a specific menu item.",
		InputSchema: GenerateSchema[getItemOptionsInput](),
		Handler:     k.getItemOptions,
	}
}

func (k *Toolkit) getItemOptions(ctx context.Context, input json.RawMessage) (string, error) {
	var in getItemOptionsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.ItemID == 0 {
		return "", Validationf("item_id is required")
	}

	opts, err := k.store.ItemOptions(ctx, in.ItemID)
	if errors.Is(err, restaurant.ErrNotFound) {
		return `{"error": "Item not found"}`, nil
	}
	if err != nil {
		return "", err
	}
	return marshalJSON(opts)
}
