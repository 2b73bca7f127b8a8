package restaurant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bottega_test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTestMenu(t *testing.T, s *Store) (itemID, configID, addonID int64) {
	t.Helper()
	ctx := context.Background()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO MenuCategories (CategoryName, Description) VALUES ('Pasta', 'Fresh pasta')`)
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	catID, _ := res.LastInsertId()

	res, err = s.db.ExecContext(ctx,
		`INSERT INTO MenuItems (CategoryID, ItemName, Description, SellingPrice, YelpURL)
		 VALUES (?, 'Gnocchi', 'Potato dumplings', 19.00, 'https://yelp.com/gnocchi')`, catID)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	itemID, _ = res.LastInsertId()

	res, err = s.db.ExecContext(ctx,
		`INSERT INTO MenuConfigurations (ItemID, Configuration, Price) VALUES (?, 'Alfredo sauce', 0)`, itemID)
	if err != nil {
		t.Fatalf("seed configuration: %v", err)
	}
	configID, _ = res.LastInsertId()

	res, err = s.db.ExecContext(ctx,
		`INSERT INTO MenuAddOns (ItemID, AddOn, Price) VALUES (?, 'Add Truffle', 6.00)`, itemID)
	if err != nil {
		t.Fatalf("seed addon: %v", err)
	}
	addonID, _ = res.LastInsertId()
	return itemID, configID, addonID
}

func seedTestCustomer(t *testing.T, s *Store) int64 {
	t.Helper()
	id, created, err := s.UpsertCustomer(context.Background(), "Dana", "(415) 555-0199", "1 Main St")
	if err != nil {
		t.Fatalf("UpsertCustomer: %v", err)
	}
	if !created {
		t.Fatal("expected a new customer")
	}
	return id
}

func TestStandardizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(415) 555-0199", "+14155550199", true},
		{"415-555-0199", "+14155550199", true},
		{"14155550199", "+14155550199", true},
		{"+14155550199", "+14155550199", true},
		{"555-0199", "", false},
		{"not a phone", "", false},
	}
	for _, tc := range cases {
		got, err := StandardizePhone(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("StandardizePhone(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("StandardizePhone(%q) err = %v, want ErrInvalidPhone", tc.in, err)
		}
	}
}

func TestUpsertCustomerUpdatesByPhone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, created, err := s.UpsertCustomer(ctx, "Dana", "4155550199", "")
	if err != nil || !created {
		t.Fatalf("first upsert: id=%d created=%v err=%v", id1, created, err)
	}

	// Same phone in a different format updates, never duplicates.
	id2, created, err := s.UpsertCustomer(ctx, "Dana R.", "(415) 555-0199", "2 Oak Ave")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created || id2 != id1 {
		t.Errorf("second upsert: id=%d created=%v, want id=%d created=false", id2, created, id1)
	}

	c, err := s.GetCustomer(ctx, id1)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if c.Name != "Dana R." || c.Address != "2 Oak Ave" || c.Phone != "+14155550199" {
		t.Errorf("customer = %+v", c)
	}
}

func TestCustomerExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTestCustomer(t, s)

	exists, err := s.CustomerExists(ctx, "415 555 0199")
	if err != nil || !exists {
		t.Errorf("CustomerExists = %v, %v; want true", exists, err)
	}
	exists, err = s.CustomerExists(ctx, "4155550000")
	if err != nil || exists {
		t.Errorf("CustomerExists unknown = %v, %v; want false", exists, err)
	}
}

func TestUpdateCustomerAddressMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateCustomerAddress(context.Background(), 999, "nowhere")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCustomerAddress = %v, want ErrNotFound", err)
	}
}

func TestAddToCartMergesMatchingLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID, configID, addonID := seedTestMenu(t, s)
	customerID := seedTestCustomer(t, s)

	p := AddToCartParams{
		CustomerID:      customerID,
		ItemID:          itemID,
		Quantity:        1,
		ConfigurationID: &configID,
		AddOnID:         &addonID,
	}
	if err := s.AddToCart(ctx, p); err != nil {
		t.Fatalf("first AddToCart: %v", err)
	}
	p.Quantity = 2
	if err := s.AddToCart(ctx, p); err != nil {
		t.Fatalf("second AddToCart: %v", err)
	}

	lines, err := s.ViewCart(ctx, customerID)
	if err != nil {
		t.Fatalf("ViewCart: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1 merged line", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", lines[0].Quantity)
	}
	if lines[0].Configuration != "Alfredo sauce" || lines[0].AddOn != "Add Truffle" {
		t.Errorf("line = %+v", lines[0])
	}
}

func TestAddToCartDistinctOptionsStaySeparate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID, configID, _ := seedTestMenu(t, s)
	customerID := seedTestCustomer(t, s)

	if err := s.AddToCart(ctx, AddToCartParams{CustomerID: customerID, ItemID: itemID, Quantity: 1}); err != nil {
		t.Fatalf("AddToCart plain: %v", err)
	}
	if err := s.AddToCart(ctx, AddToCartParams{CustomerID: customerID, ItemID: itemID, Quantity: 1, ConfigurationID: &configID}); err != nil {
		t.Fatalf("AddToCart configured: %v", err)
	}

	lines, err := s.ViewCart(ctx, customerID)
	if err != nil {
		t.Fatalf("ViewCart: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("lines = %d, want 2 distinct lines", len(lines))
	}
}

func TestAddToCartUnknownItem(t *testing.T) {
	s := newTestStore(t)
	customerID := seedTestCustomer(t, s)

	err := s.AddToCart(context.Background(), AddToCartParams{CustomerID: customerID, ItemID: 12345, Quantity: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AddToCart unknown item = %v, want ErrNotFound", err)
	}
}

func TestUpdateCartItemQuantityZeroRemoves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID, _, _ := seedTestMenu(t, s)
	customerID := seedTestCustomer(t, s)

	if err := s.AddToCart(ctx, AddToCartParams{CustomerID: customerID, ItemID: itemID, Quantity: 2}); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	lines, _ := s.ViewCart(ctx, customerID)
	if len(lines) != 1 {
		t.Fatalf("setup lines = %d", len(lines))
	}

	zero := int64(0)
	line, removed, err := s.UpdateCartItem(ctx, UpdateCartItemParams{
		CustomerID:  customerID,
		CartItemID:  lines[0].CartItemID,
		NewQuantity: &zero,
	})
	if err != nil {
		t.Fatalf("UpdateCartItem: %v", err)
	}
	if !removed {
		t.Error("quantity 0 should remove the line")
	}
	if line.ItemName != "Gnocchi" {
		t.Errorf("removed line = %+v", line)
	}

	lines, _ = s.ViewCart(ctx, customerID)
	if len(lines) != 0 {
		t.Errorf("lines after removal = %d, want 0", len(lines))
	}
}

func TestUpdateCartItemWrongCustomer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID, _, _ := seedTestMenu(t, s)
	customerID := seedTestCustomer(t, s)

	if err := s.AddToCart(ctx, AddToCartParams{CustomerID: customerID, ItemID: itemID, Quantity: 1}); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	lines, _ := s.ViewCart(ctx, customerID)

	other, _, err := s.UpsertCustomer(ctx, "Eve", "4155550111", "")
	if err != nil {
		t.Fatalf("UpsertCustomer: %v", err)
	}

	qty := int64(5)
	_, _, err = s.UpdateCartItem(ctx, UpdateCartItemParams{
		CustomerID:  other,
		CartItemID:  lines[0].CartItemID,
		NewQuantity: &qty,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCartItem other customer = %v, want ErrNotFound", err)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	s := newTestStore(t)
	customerID := seedTestCustomer(t, s)

	_, err := s.CreateOrder(context.Background(), customerID, "pickup")
	if !errors.Is(err, ErrEmptyCart) {
		t.Errorf("CreateOrder with no cart = %v, want ErrEmptyCart", err)
	}
}

func TestCreateOrderClearsCartAndTracksStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID, _, addonID := seedTestMenu(t, s)
	customerID := seedTestCustomer(t, s)

	if err := s.AddToCart(ctx, AddToCartParams{
		CustomerID:          customerID,
		ItemID:              itemID,
		Quantity:            2,
		AddOnID:             &addonID,
		SpecialInstructions: "extra crispy",
	}); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	summary, err := s.CreateOrder(ctx, customerID, "delivery")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	// 2 * (19.00 + 6.00)
	if summary.TotalAmount != 50.00 {
		t.Errorf("TotalAmount = %.2f, want 50.00", summary.TotalAmount)
	}
	if len(summary.Lines) != 1 || summary.Lines[0].Quantity != 2 {
		t.Errorf("Lines = %+v", summary.Lines)
	}

	// The cart is cleared; a second order is an empty-cart error.
	if _, err := s.CreateOrder(ctx, customerID, "delivery"); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("second CreateOrder = %v, want ErrEmptyCart", err)
	}

	info, err := s.GetOrderStatus(ctx, summary.OrderID)
	if err != nil {
		t.Fatalf("GetOrderStatus: %v", err)
	}
	if info.Status != "Pending" || info.OrderType != "delivery" {
		t.Errorf("status = %+v", info)
	}
	if len(info.Items) != 1 || info.Items[0].SpecialInstructions != "extra crispy" {
		t.Errorf("Items = %+v", info.Items)
	}

	if err := s.UpdateOrderStatus(ctx, summary.OrderID, "Preparing"); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	info, _ = s.GetOrderStatus(ctx, summary.OrderID)
	if info.Status != "Preparing" {
		t.Errorf("Status after update = %q, want Preparing", info.Status)
	}

	orders, err := s.ListOrders(ctx, customerID)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("orders = %d, want 1", len(orders))
	}
}

func TestGetOrderStatusMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetOrderStatus(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOrderStatus = %v, want ErrNotFound", err)
	}
}

func TestSeedMenuIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedTestMenu(t, s)

	// Populated tables make seeding a no-op even with a bogus path.
	if err := s.SeedMenu(ctx, "does-not-exist.yaml"); err != nil {
		t.Fatalf("SeedMenu on populated db: %v", err)
	}

	cats, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 1 {
		t.Errorf("categories = %d, want 1", len(cats))
	}
}

func TestItemOptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	itemID, _, _ := seedTestMenu(t, s)

	opts, err := s.ItemOptions(ctx, itemID)
	if err != nil {
		t.Fatalf("ItemOptions: %v", err)
	}
	if len(opts.Configurations) != 1 || opts.Configurations[0].Name != "Alfredo sauce" {
		t.Errorf("Configurations = %+v", opts.Configurations)
	}
	if len(opts.AddOns) != 1 || opts.AddOns[0].Price != 6.00 {
		t.Errorf("AddOns = %+v", opts.AddOns)
	}

	if _, err := s.ItemOptions(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("ItemOptions missing = %v, want ErrNotFound", err)
	}
}
