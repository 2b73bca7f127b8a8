package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OrderSummary is the result of placing an order: the rows written plus
// the cart lines they were built from, for receipts and notifications.
type OrderSummary struct {
	OrderID     int64
	CustomerID  int64
	OrderType   string
	TotalAmount float64
	Lines       []CartLine
	PlacedAt    time.Time
}

// OrderItemInfo is one line of a placed order, as shown in status
// lookups.
type OrderItemInfo struct {
	ItemName            string
	Quantity            int64
	Price               float64
	SpecialInstructions string
}

// OrderStatusInfo is the latest status of an order with its lines.
type OrderStatusInfo struct {
	OrderID     int64
	Status      string
	OrderDate   string
	OrderType   string
	TotalAmount float64
	Items       []OrderItemInfo
}

// CreateOrder turns the customer's active cart into an order: writes
// the order, its items, and an initial "Pending" status, then clears
// the cart — all in one transaction. Returns ErrEmptyCart (and writes
// nothing) when there is no active cart or the cart has no lines.
func (s *Store) CreateOrder(ctx context.Context, customerID int64, orderType string) (*OrderSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cartID, err := activeCartID(ctx, tx, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT ci.CartItemID, mi.ItemName, ci.Quantity, mi.SellingPrice, ci.SpecialInstructions,
		       mc.Configuration, mc.Price, ma.AddOn, ma.Price
		FROM CartItems ci
		JOIN MenuItems mi ON ci.ItemID = mi.ItemID
		LEFT JOIN MenuConfigurations mc ON ci.ConfigurationID = mc.ConfigurationID
		LEFT JOIN MenuAddOns ma ON ci.AddOnID = ma.AddOnID
		WHERE ci.CartID = ?
		ORDER BY ci.CartItemID`, cartID)
	if err != nil {
		return nil, err
	}
	var (
		lines []CartLine
		total float64
	)
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, line)
		total += line.LineTotal()
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO Orders (CustomerID, CartID, TotalAmount, OrderType) VALUES (?, ?, ?, ?)`,
		customerID, cartID, total, orderType)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO OrderItems (OrderID, ItemID, Quantity, Price, SpecialInstructions, ConfigurationID, AddOnID)
		SELECT ?, ci.ItemID, ci.Quantity,
		       (mi.SellingPrice + COALESCE(mc.Price, 0) + COALESCE(ma.Price, 0)),
		       ci.SpecialInstructions, ci.ConfigurationID, ci.AddOnID
		FROM CartItems ci
		JOIN MenuItems mi ON ci.ItemID = mi.ItemID
		LEFT JOIN MenuConfigurations mc ON ci.ConfigurationID = mc.ConfigurationID
		LEFT JOIN MenuAddOns ma ON ci.AddOnID = ma.AddOnID
		WHERE ci.CartID = ?`, orderID, cartID)
	if err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO OrderStatus (OrderID, Status) VALUES (?, 'Pending')`, orderID); err != nil {
		return nil, fmt.Errorf("insert order status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM CartItems WHERE CartID = ?`, cartID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &OrderSummary{
		OrderID:     orderID,
		CustomerID:  customerID,
		OrderType:   orderType,
		TotalAmount: total,
		Lines:       lines,
		PlacedAt:    time.Now().UTC(),
	}, nil
}

// RecordPaymentLink stores the payment link generated for an order.
func (s *Store) RecordPaymentLink(ctx context.Context, orderID int64, url string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO PaymentLinks (OrderID, URL) VALUES (?, ?)`, orderID, url)
	return err
}

// GetOrderStatus returns the latest status of an order and its lines.
// Returns ErrNotFound for an unknown order id.
func (s *Store) GetOrderStatus(ctx context.Context, orderID int64) (*OrderStatusInfo, error) {
	info := &OrderStatusInfo{OrderID: orderID}
	err := s.db.QueryRowContext(ctx, `
		SELECT os.Status, o.OrderDate, o.TotalAmount, o.OrderType
		FROM OrderStatus os
		JOIN Orders o ON os.OrderID = o.OrderID
		WHERE os.OrderID = ?
		ORDER BY os.UpdatedAt DESC, os.StatusID DESC
		LIMIT 1`, orderID).
		Scan(&info.Status, &info.OrderDate, &info.TotalAmount, &info.OrderType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT mi.ItemName, oi.Quantity, oi.Price, oi.SpecialInstructions
		FROM OrderItems oi
		JOIN MenuItems mi ON oi.ItemID = mi.ItemID
		WHERE oi.OrderID = ?
		ORDER BY oi.OrderItemID`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item OrderItemInfo
			si   sql.NullString
		)
		if err := rows.Scan(&item.ItemName, &item.Quantity, &item.Price, &si); err != nil {
			return nil, err
		}
		item.SpecialInstructions = si.String
		info.Items = append(info.Items, item)
	}
	return info, rows.Err()
}

// UpdateOrderStatus appends a new status row for an order (e.g. when
// payment is confirmed). Returns ErrNotFound for an unknown order.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM Orders WHERE OrderID = ?`, orderID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO OrderStatus (OrderID, Status) VALUES (?, ?)`, orderID, status)
	return err
}
