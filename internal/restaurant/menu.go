package restaurant

import (
	"context"
	"database/sql"
	"errors"
)

// Category is a menu section (e.g. Antipasti, Pasta, Pizza).
type Category struct {
	ID          int64  `json:"category_id"`
	Name        string `json:"category_name"`
	Description string `json:"description,omitempty"`
}

// Configuration is a required choice on a menu item (e.g. sauce).
type Configuration struct {
	ID    int64   `json:"configuration_id"`
	Name  string  `json:"configuration"`
	Price float64 `json:"price"`
}

// AddOn is an optional paid extra on a menu item.
type AddOn struct {
	ID    int64   `json:"addon_id"`
	Name  string  `json:"addon"`
	Price float64 `json:"price"`
}

// MenuItem is one orderable item with its nested options.
type MenuItem struct {
	ID             int64           `json:"item_id"`
	CategoryID     int64           `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	Name           string          `json:"item_name"`
	Description    string          `json:"description,omitempty"`
	Price          float64         `json:"selling_price"`
	YelpURL        string          `json:"yelp_url,omitempty"`
	Configurations []Configuration `json:"configurations"`
	AddOns         []AddOn         `json:"addons"`
}

// ItemOptions are the available configurations and add-ons for an item.
type ItemOptions struct {
	ItemName       string          `json:"item_name"`
	Configurations []Configuration `json:"configurations"`
	AddOns         []AddOn         `json:"addons"`
}

// ListCategories returns all menu categories.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT CategoryID, CategoryName, Description FROM MenuCategories ORDER BY CategoryID`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var (
			c    Category
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &desc); err != nil {
			return nil, err
		}
		c.Description = desc.String
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ListItems returns menu items with nested configurations and add-ons,
// optionally filtered by category (categoryID 0 means all).
func (s *Store) ListItems(ctx context.Context, categoryID int64) ([]MenuItem, error) {
	query := `
		SELECT m.ItemID, m.CategoryID, c.CategoryName, m.ItemName, m.Description, m.SellingPrice, m.YelpURL
		FROM MenuItems m
		JOIN MenuCategories c ON m.CategoryID = c.CategoryID`
	args := []any{}
	if categoryID != 0 {
		query += ` WHERE m.CategoryID = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY m.ItemID`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var (
			it         MenuItem
			desc, yelp sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.CategoryID, &it.CategoryName, &it.Name, &desc, &it.Price, &yelp); err != nil {
			return nil, err
		}
		it.Description = desc.String
		it.YelpURL = yelp.String
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].Configurations, err = s.itemConfigurations(ctx, items[i].ID); err != nil {
			return nil, err
		}
		if items[i].AddOns, err = s.itemAddOns(ctx, items[i].ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ItemOptions fetches the configurations and add-ons for one item.
// Returns ErrNotFound for an unknown item id.
func (s *Store) ItemOptions(ctx context.Context, itemID int64) (*ItemOptions, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT ItemName FROM MenuItems WHERE ItemID = ?`, itemID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	opts := &ItemOptions{ItemName: name}
	if opts.Configurations, err = s.itemConfigurations(ctx, itemID); err != nil {
		return nil, err
	}
	if opts.AddOns, err = s.itemAddOns(ctx, itemID); err != nil {
		return nil, err
	}
	return opts, nil
}

func (s *Store) itemConfigurations(ctx context.Context, itemID int64) ([]Configuration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ConfigurationID, Configuration, Price FROM MenuConfigurations WHERE ItemID = ? ORDER BY ConfigurationID`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []Configuration
	for rows.Next() {
		var c Configuration
		if err := rows.Scan(&c.ID, &c.Name, &c.Price); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *Store) itemAddOns(ctx context.Context, itemID int64) ([]AddOn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT AddOnID, AddOn, Price FROM MenuAddOns WHERE ItemID = ? ORDER BY AddOnID`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addons []AddOn
	for rows.Next() {
		var a AddOn
		if err := rows.Scan(&a.ID, &a.Name, &a.Price); err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}
	return addons, rows.Err()
}
