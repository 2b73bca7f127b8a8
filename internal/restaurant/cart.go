package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CartLine is one line of a customer's cart, joined with menu data.
type CartLine struct {
	CartItemID          int64   `json:"cart_item_id"`
	ItemName            string  `json:"item_name"`
	Quantity            int64   `json:"quantity"`
	UnitPrice           float64 `json:"unit_price"`
	SpecialInstructions string  `json:"special_instructions,omitempty"`
	Configuration       string  `json:"configuration,omitempty"`
	ConfigurationPrice  float64 `json:"configuration_price,omitempty"`
	AddOn               string  `json:"addon,omitempty"`
	AddOnPrice          float64 `json:"addon_price,omitempty"`
}

// LineTotal is the extended price of the line including options.
func (l CartLine) LineTotal() float64 {
	return float64(l.Quantity) * (l.UnitPrice + l.ConfigurationPrice + l.AddOnPrice)
}

// AddToCartParams names the inputs to AddToCart. Optional fields are
// pointers so "not provided" is distinguishable from zero.
type AddToCartParams struct {
	CustomerID          int64
	ItemID              int64
	Quantity            int64
	SpecialInstructions string
	ConfigurationID     *int64
	AddOnID             *int64
}

// UpdateCartItemParams names the inputs to UpdateCartItem. Nil fields
// are left unchanged; a NewQuantity of 0 removes the line.
type UpdateCartItemParams struct {
	CustomerID          int64
	CartItemID          int64
	NewQuantity         *int64
	NewInstructions     *string
	NewConfigurationID  *int64
	NewAddOnID          *int64
}

// activeCartID returns the customer's most recent cart id, or
// sql.ErrNoRows when none exists.
func activeCartID(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, customerID int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT CartID FROM Cart WHERE CustomerID = ? ORDER BY CreatedAt DESC, CartID DESC LIMIT 1`,
		customerID).Scan(&id)
	return id, err
}

// AddToCart adds an item to the customer's active cart, creating the
// cart if needed. A line with the same item, configuration, and add-on
// is merged by summing quantities; new special instructions replace
// the old ones when provided.
func (s *Store) AddToCart(ctx context.Context, p AddToCartParams) error {
	if p.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", p.Quantity)
	}
	// Validate the item exists so the model gets a correctable error
	// instead of an opaque foreign-key failure.
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM MenuItems WHERE ItemID = ?`, p.ItemID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("menu item %d: %w", p.ItemID, ErrNotFound)
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cartID, err := activeCartID(ctx, tx, p.CustomerID)
	if errors.Is(err, sql.ErrNoRows) {
		res, insErr := tx.ExecContext(ctx, `INSERT INTO Cart (CustomerID) VALUES (?)`, p.CustomerID)
		if insErr != nil {
			return fmt.Errorf("create cart: %w", insErr)
		}
		cartID, err = res.LastInsertId()
	}
	if err != nil {
		return err
	}

	instructions := sql.NullString{String: p.SpecialInstructions, Valid: p.SpecialInstructions != ""}

	// Merge with an existing line for the same item/configuration/addon.
	// "IS ?" matches NULL option columns, which UNIQUE alone would not.
	var lineID int64
	err = tx.QueryRowContext(ctx, `
		SELECT CartItemID FROM CartItems
		WHERE CartID = ? AND ItemID = ? AND ConfigurationID IS ? AND AddOnID IS ?`,
		cartID, p.ItemID, nullInt(p.ConfigurationID), nullInt(p.AddOnID)).Scan(&lineID)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE CartItems
			SET Quantity = Quantity + ?,
			    SpecialInstructions = COALESCE(?, SpecialInstructions)
			WHERE CartItemID = ?`, p.Quantity, instructions, lineID)
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO CartItems (CartID, ItemID, Quantity, SpecialInstructions, ConfigurationID, AddOnID)
			VALUES (?, ?, ?, ?, ?, ?)`,
			cartID, p.ItemID, p.Quantity, instructions, nullInt(p.ConfigurationID), nullInt(p.AddOnID))
	}
	if err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}
	return tx.Commit()
}

// ViewCart returns the lines of the customer's active cart in insertion
// order. An empty slice means the cart is empty or absent.
func (s *Store) ViewCart(ctx context.Context, customerID int64) ([]CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.CartItemID, mi.ItemName, ci.Quantity, mi.SellingPrice, ci.SpecialInstructions,
		       mc.Configuration, mc.Price, ma.AddOn, ma.Price
		FROM CartItems ci
		JOIN Cart c ON ci.CartID = c.CartID
		JOIN MenuItems mi ON ci.ItemID = mi.ItemID
		LEFT JOIN MenuConfigurations mc ON ci.ConfigurationID = mc.ConfigurationID
		LEFT JOIN MenuAddOns ma ON ci.AddOnID = ma.AddOnID
		WHERE c.CustomerID = ?
		ORDER BY ci.CartItemID`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CartLine
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// UpdateCartItem updates quantity, instructions, configuration, or
// add-on on one cart line belonging to the customer. A NewQuantity of 0
// removes the line and returns removed=true. The returned line reflects
// the post-update state (zero value when removed).
func (s *Store) UpdateCartItem(ctx context.Context, p UpdateCartItemParams) (CartLine, bool, error) {
	var current CartLine
	err := s.db.QueryRowContext(ctx, `
		SELECT ci.CartItemID, mi.ItemName, ci.Quantity, mi.SellingPrice, ci.SpecialInstructions,
		       mc.Configuration, mc.Price, ma.AddOn, ma.Price
		FROM CartItems ci
		JOIN Cart c ON ci.CartID = c.CartID
		JOIN MenuItems mi ON ci.ItemID = mi.ItemID
		LEFT JOIN MenuConfigurations mc ON ci.ConfigurationID = mc.ConfigurationID
		LEFT JOIN MenuAddOns ma ON ci.AddOnID = ma.AddOnID
		WHERE c.CustomerID = ? AND ci.CartItemID = ?`,
		p.CustomerID, p.CartItemID).
		Scan(scanCartLineDest(&current)...)
	if errors.Is(err, sql.ErrNoRows) {
		return CartLine{}, false, ErrNotFound
	}
	if err != nil {
		return CartLine{}, false, err
	}

	if p.NewQuantity != nil && *p.NewQuantity == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM CartItems WHERE CartItemID = ?`, p.CartItemID); err != nil {
			return CartLine{}, false, err
		}
		return current, true, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CartLine{}, false, err
	}
	defer tx.Rollback()

	if p.NewQuantity != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE CartItems SET Quantity = ? WHERE CartItemID = ?`, *p.NewQuantity, p.CartItemID); err != nil {
			return CartLine{}, false, err
		}
	}
	if p.NewInstructions != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE CartItems SET SpecialInstructions = ? WHERE CartItemID = ?`, *p.NewInstructions, p.CartItemID); err != nil {
			return CartLine{}, false, err
		}
	}
	if p.NewConfigurationID != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE CartItems SET ConfigurationID = ? WHERE CartItemID = ?`, *p.NewConfigurationID, p.CartItemID); err != nil {
			return CartLine{}, false, err
		}
	}
	if p.NewAddOnID != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE CartItems SET AddOnID = ? WHERE CartItemID = ?`, *p.NewAddOnID, p.CartItemID); err != nil {
			return CartLine{}, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return CartLine{}, false, err
	}

	var updated CartLine
	err = s.db.QueryRowContext(ctx, `
		SELECT ci.CartItemID, mi.ItemName, ci.Quantity, mi.SellingPrice, ci.SpecialInstructions,
		       mc.Configuration, mc.Price, ma.AddOn, ma.Price
		FROM CartItems ci
		JOIN MenuItems mi ON ci.ItemID = mi.ItemID
		LEFT JOIN MenuConfigurations mc ON ci.ConfigurationID = mc.ConfigurationID
		LEFT JOIN MenuAddOns ma ON ci.AddOnID = ma.AddOnID
		WHERE ci.CartItemID = ?`, p.CartItemID).
		Scan(scanCartLineDest(&updated)...)
	if err != nil {
		return CartLine{}, false, err
	}
	return updated, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCartLine(r rowScanner) (CartLine, error) {
	var line CartLine
	if err := r.Scan(scanCartLineDest(&line)...); err != nil {
		return CartLine{}, err
	}
	return line, nil
}

// scanCartLineDest builds the scan targets for the shared cart-line
// column list, mapping NULLable columns through temporaries.
func scanCartLineDest(line *CartLine) []any {
	return []any{
		&line.CartItemID, &line.ItemName, &line.Quantity, &line.UnitPrice,
		nullStringInto(&line.SpecialInstructions),
		nullStringInto(&line.Configuration), nullFloatInto(&line.ConfigurationPrice),
		nullStringInto(&line.AddOn), nullFloatInto(&line.AddOnPrice),
	}
}

// nullStringInto returns a sql.Scanner writing a NULLable TEXT column
// into the given string (NULL becomes "").
func nullStringInto(dst *string) sql.Scanner { return &nullString{dst: dst} }

type nullString struct{ dst *string }

func (n *nullString) Scan(v any) error {
	var ns sql.NullString
	if err := ns.Scan(v); err != nil {
		return err
	}
	*n.dst = ns.String
	return nil
}

// nullFloatInto returns a sql.Scanner writing a NULLable REAL column
// into the given float (NULL becomes 0).
func nullFloatInto(dst *float64) sql.Scanner { return &nullFloat{dst: dst} }

type nullFloat struct{ dst *float64 }

func (n *nullFloat) Scan(v any) error {
	var nf sql.NullFloat64
	if err := nf.Scan(v); err != nil {
		return err
	}
	*n.dst = nf.Float64
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
