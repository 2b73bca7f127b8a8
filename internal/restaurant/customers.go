package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Customer is a restaurant customer keyed by standardized phone number.
type Customer struct {
	ID      int64  `json:"customer_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// Order is a historical order record.
type Order struct {
	ID          int64     `json:"order_id"`
	CustomerID  int64     `json:"customer_id"`
	TotalAmount float64   `json:"total_amount"`
	OrderType   string    `json:"order_type"`
	OrderDate   time.Time `json:"order_date"`
}

var nonDigits = regexp.MustCompile(`\D`)

// ErrInvalidPhone is returned when a phone number cannot be
// standardized to +1XXXXXXXXXX.
var ErrInvalidPhone = errors.New("invalid phone number format")

// StandardizePhone normalizes a US phone number to +1XXXXXXXXXX.
func StandardizePhone(phone string) (string, error) {
	digits := nonDigits.ReplaceAllString(phone, "")
	switch {
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	case len(digits) == 10:
		return "+1" + digits, nil
	default:
		return "", ErrInvalidPhone
	}
}

// UpsertCustomer creates a customer or updates the existing one with
// the same phone number. The address only overwrites when non-empty.
// Returns the customer id and whether a new row was created.
func (s *Store) UpsertCustomer(ctx context.Context, name, phone, address string) (int64, bool, error) {
	std, err := StandardizePhone(phone)
	if err != nil {
		return 0, false, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT CustomerID FROM Customers WHERE Phone = ?`, std).Scan(&id)
	switch {
	case err == nil:
		if address != "" {
			_, err = s.db.ExecContext(ctx, `UPDATE Customers SET Name = ?, Address = ? WHERE CustomerID = ?`, name, address, id)
		} else {
			_, err = s.db.ExecContext(ctx, `UPDATE Customers SET Name = ? WHERE CustomerID = ?`, name, id)
		}
		if err != nil {
			return 0, false, fmt.Errorf("update customer: %w", err)
		}
		return id, false, nil
	case errors.Is(err, sql.ErrNoRows):
		var res sql.Result
		if address != "" {
			res, err = s.db.ExecContext(ctx, `INSERT INTO Customers (Name, Phone, Address) VALUES (?, ?, ?)`, name, std, address)
		} else {
			res, err = s.db.ExecContext(ctx, `INSERT INTO Customers (Name, Phone) VALUES (?, ?)`, name, std)
		}
		if err != nil {
			return 0, false, fmt.Errorf("insert customer: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	default:
		return 0, false, fmt.Errorf("lookup customer: %w", err)
	}
}

// UpdateCustomerAddress sets the address for an existing customer.
// Returns ErrNotFound when no customer has the given id.
func (s *Store) UpdateCustomerAddress(ctx context.Context, customerID int64, address string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE Customers SET Address = ? WHERE CustomerID = ?`, address, customerID)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CustomerExists reports whether a customer with the given phone exists.
// The phone is standardized before lookup; an unparseable phone simply
// does not match.
func (s *Store) CustomerExists(ctx context.Context, phone string) (bool, error) {
	std, err := StandardizePhone(phone)
	if err != nil {
		std = phone
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM Customers WHERE Phone = ?`, std).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetCustomer fetches a customer by id.
func (s *Store) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	var (
		c       Customer
		address sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT CustomerID, Name, Phone, Address FROM Customers WHERE CustomerID = ?`, customerID).
		Scan(&c.ID, &c.Name, &c.Phone, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Address = address.String
	return &c, nil
}

// ListOrders returns a customer's orders, newest first.
func (s *Store) ListOrders(ctx context.Context, customerID int64) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT OrderID, CustomerID, TotalAmount, OrderType, OrderDate
		FROM Orders
		WHERE CustomerID = ?
		ORDER BY OrderDate DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var (
			o    Order
			date string
		)
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.OrderType, &date); err != nil {
			return nil, err
		}
		o.OrderDate, _ = time.Parse("2006-01-02 15:04:05", date)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
