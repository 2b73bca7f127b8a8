// Package restaurant provides the SQLite-backed data layer for the
// ordering domain: customers, menu, carts, and orders. The agent's
// tools are thin wrappers over this store.
package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row the caller named does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmptyCart is returned by CreateOrder when the customer has no
// active cart or the cart has no lines. No order rows are written.
var ErrEmptyCart = errors.New("no active cart found")

// Store manages restaurant persistence.
type Store struct {
	db *sql.DB
}

// Open creates a store using the given database path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite allows one writer; serialize at the pool level.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewStoreWithDB creates a store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS Customers (
			CustomerID INTEGER PRIMARY KEY AUTOINCREMENT,
			Name       TEXT NOT NULL,
			Phone      TEXT NOT NULL UNIQUE,
			Address    TEXT
		);

		CREATE TABLE IF NOT EXISTS MenuCategories (
			CategoryID   INTEGER PRIMARY KEY AUTOINCREMENT,
			CategoryName TEXT NOT NULL,
			Description  TEXT
		);

		CREATE TABLE IF NOT EXISTS MenuItems (
			ItemID       INTEGER PRIMARY KEY AUTOINCREMENT,
			CategoryID   INTEGER NOT NULL REFERENCES MenuCategories(CategoryID),
			ItemName     TEXT NOT NULL,
			Description  TEXT,
			SellingPrice REAL NOT NULL,
			YelpURL      TEXT
		);

		CREATE TABLE IF NOT EXISTS MenuConfigurations (
			ConfigurationID INTEGER PRIMARY KEY AUTOINCREMENT,
			ItemID          INTEGER NOT NULL REFERENCES MenuItems(ItemID),
			Configuration   TEXT NOT NULL,
			Price           REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS MenuAddOns (
			AddOnID INTEGER PRIMARY KEY AUTOINCREMENT,
			ItemID  INTEGER NOT NULL REFERENCES MenuItems(ItemID),
			AddOn   TEXT NOT NULL,
			Price   REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS Cart (
			CartID     INTEGER PRIMARY KEY AUTOINCREMENT,
			CustomerID INTEGER NOT NULL REFERENCES Customers(CustomerID),
			CreatedAt  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS CartItems (
			CartItemID          INTEGER PRIMARY KEY AUTOINCREMENT,
			CartID              INTEGER NOT NULL REFERENCES Cart(CartID),
			ItemID              INTEGER NOT NULL REFERENCES MenuItems(ItemID),
			Quantity            INTEGER NOT NULL,
			SpecialInstructions TEXT,
			ConfigurationID     INTEGER REFERENCES MenuConfigurations(ConfigurationID),
			AddOnID             INTEGER REFERENCES MenuAddOns(AddOnID),
			UNIQUE(CartID, ItemID, ConfigurationID, AddOnID)
		);

		CREATE TABLE IF NOT EXISTS Orders (
			OrderID     INTEGER PRIMARY KEY AUTOINCREMENT,
			CustomerID  INTEGER NOT NULL REFERENCES Customers(CustomerID),
			CartID      INTEGER NOT NULL REFERENCES Cart(CartID),
			TotalAmount REAL NOT NULL,
			OrderType   TEXT NOT NULL,
			OrderDate   TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS OrderItems (
			OrderItemID         INTEGER PRIMARY KEY AUTOINCREMENT,
			OrderID             INTEGER NOT NULL REFERENCES Orders(OrderID),
			ItemID              INTEGER NOT NULL REFERENCES MenuItems(ItemID),
			Quantity            INTEGER NOT NULL,
			Price               REAL NOT NULL,
			SpecialInstructions TEXT,
			ConfigurationID     INTEGER,
			AddOnID             INTEGER
		);

		CREATE TABLE IF NOT EXISTS OrderStatus (
			StatusID  INTEGER PRIMARY KEY AUTOINCREMENT,
			OrderID   INTEGER NOT NULL REFERENCES Orders(OrderID),
			Status    TEXT NOT NULL,
			UpdatedAt TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS PaymentLinks (
			PaymentLinkID INTEGER PRIMARY KEY AUTOINCREMENT,
			OrderID       INTEGER NOT NULL REFERENCES Orders(OrderID),
			URL           TEXT NOT NULL,
			CreatedAt     TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_menu_items_category ON MenuItems(CategoryID);
		CREATE INDEX IF NOT EXISTS idx_cart_customer ON Cart(CustomerID, CreatedAt DESC);
		CREATE INDEX IF NOT EXISTS idx_cart_items_cart ON CartItems(CartID);
		CREATE INDEX IF NOT EXISTS idx_orders_customer ON Orders(CustomerID, OrderDate DESC);
		CREATE INDEX IF NOT EXISTS idx_order_status_order ON OrderStatus(OrderID, UpdatedAt DESC);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
