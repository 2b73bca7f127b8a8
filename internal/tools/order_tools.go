package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bottegalabs/bottega/internal/payments"
	"github.com/bottegalabs/bottega/internal/restaurant"
)

const paymentLinkFallback = "Error generating payment link. Please contact support."

type placeOrderInput struct {
	CustomerID int64  `json:"customer_id" jsonschema_description:"Customer id placing the order."`
	OrderType  string `json:"order_type" jsonschema_description:"Either \"delivery\" or \"pickup\"."`
}

func (k *Toolkit) placeOrderDefinition() Definition {
	return Definition{
		Name:        "place_order",
		Description: "Place an order from the customer's cart, generate a payment link, and notify the customer and the restaurant by SMS.",
		InputSchema: GenerateSchema[placeOrderInput](),
		Handler:     k.placeOrder,
	}
}

func (k *Toolkit) placeOrder(ctx context.Context, input json.RawMessage) (string, error) {
	var in placeOrderInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.CustomerID == 0 {
		return "", Validationf("customer_id is required")
	}
	orderType := strings.ToLower(strings.TrimSpace(in.OrderType))
	if orderType != "delivery" && orderType != "pickup" {
		return "", Validationf(`order_type must be "delivery" or "pickup"`)
	}

	summary, err := k.store.CreateOrder(ctx, in.CustomerID, orderType)
	if errors.Is(err, restaurant.ErrEmptyCart) {
		return "Error: No active cart found for the customer.", nil
	}
	if err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}

	customer, err := k.store.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		// The order is already committed; report it without notifications.
		log.Error().Err(err).Int64("customer_id", in.CustomerID).Msg("Customer lookup failed after order placement")
		return orderPlacedStatus(summary, paymentLinkFallback), nil
	}

	// Payment-link and SMS failures degrade gracefully: the order
	// stands, the customer is told to contact support.
	paymentURL, err := k.payments.CreateLink(ctx, payments.LinkRequest{
		OrderID:     summary.OrderID,
		CustomerID:  summary.CustomerID,
		OrderType:   summary.OrderType,
		Description: fmt.Sprintf("Order #%d - Bottega Restaurant", summary.OrderID),
		Amount:      summary.TotalAmount,
	})
	if err != nil {
		log.Error().Err(err).Int64("order_id", summary.OrderID).Msg("Payment link generation failed")
		paymentURL = paymentLinkFallback
	} else if err := k.store.RecordPaymentLink(ctx, summary.OrderID, paymentURL); err != nil {
		log.Warn().Err(err).Int64("order_id", summary.OrderID).Msg("Failed to record payment link")
	}

	if err := k.sms.Send(ctx, customer.Phone, customerOrderSMS(customer, summary, paymentURL, k.restaurantPhone)); err != nil {
		log.Warn().Err(err).Int64("order_id", summary.OrderID).Msg("Failed to send customer SMS")
	}
	if k.restaurantPhone != "" {
		if err := k.sms.Send(ctx, k.restaurantPhone, restaurantOrderSMS(customer, summary)); err != nil {
			log.Warn().Err(err).Int64("order_id", summary.OrderID).Msg("Failed to send restaurant SMS")
		}
	}

	log.Info().
		Int64("order_id", summary.OrderID).
		Int64("customer_id", summary.CustomerID).
		Str("order_type", summary.OrderType).
		Float64("total", summary.TotalAmount).
		Msg("Order placed")

	return orderPlacedStatus(summary, paymentURL), nil
}

func orderPlacedStatus(summary *restaurant.OrderSummary, paymentURL string) string {
	return fmt.Sprintf(`Order placed successfully.
Order ID: %d
Total Amount: $%.2f
Payment Link: %s

Please inform the customer that their order will be prepared once payment is received.`,
		summary.OrderID, summary.TotalAmount, paymentURL)
}

func orderDetails(lines []restaurant.CartLine) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s x%d ($%.2f)", l.ItemName, l.Quantity, l.LineTotal())
		if l.Configuration != "" {
			fmt.Fprintf(&b, " - Configuration: %s", l.Configuration)
		}
		if l.AddOn != "" {
			fmt.Fprintf(&b, " - Add-on: %s", l.AddOn)
		}
		if l.SpecialInstructions != "" {
			fmt.Fprintf(&b, " - Special Instructions: %s", l.SpecialInstructions)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func customerOrderSMS(customer *restaurant.Customer, summary *restaurant.OrderSummary, paymentURL, restaurantPhone string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Dear %s,

Thank you for your order with Bottega Restaurant!

Order Details:
Order ID: %d
Date & Time: %s
Type: %s

Items:
%s

Total Amount: $%.2f

To complete your order, please use this secure payment link:
%s

Your order will be prepared once payment is received.

`,
		customer.Name, summary.OrderID, summary.PlacedAt.Format("2006-01-02 15:04:05"),
		titleCase(summary.OrderType), orderDetails(summary.Lines), summary.TotalAmount, paymentURL)

	if summary.OrderType == "delivery" {
		if customer.Address != "" {
			fmt.Fprintf(&b, "Delivery Address: %s\n", customer.Address)
		} else {
			b.WriteString("We'll contact you to confirm your delivery address.\n")
		}
	} else {
		b.WriteString("This is a pickup order. Please collect your order from our restaurant.\n")
	}

	if restaurantPhone != "" {
		fmt.Fprintf(&b, "\nFor any questions, please contact us @ %s.\n", restaurantPhone)
	}
	b.WriteString("\nThank you for choosing Bottega Restaurant!")
	return b.String()
}

func restaurantOrderSMS(customer *restaurant.Customer, summary *restaurant.OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, `New Order Alert!

Order ID: %d
Customer: %s
Phone: %s
Type: %s
Date & Time: %s

Items:
%s

Total Amount: $%.2f

`,
		summary.OrderID, customer.Name, customer.Phone, titleCase(summary.OrderType),
		summary.PlacedAt.Format("2006-01-02 15:04:05"), orderDetails(summary.Lines), summary.TotalAmount)

	if summary.OrderType == "delivery" {
		if customer.Address != "" {
			fmt.Fprintf(&b, "Delivery Address: %s\n", customer.Address)
		} else {
			b.WriteString("Address not provided. Please contact customer for delivery details.\n")
		}
	} else {
		b.WriteString("This is a pickup order.\n")
	}

	fmt.Fprintf(&b, "Please prepare this order for %s once payment is confirmed.", summary.OrderType)
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type getOrderStatusInput struct {
	OrderID int64 `json:"order_id" jsonschema_description:"Order id to look up."`
}

func (k *Toolkit) getOrderStatusDefinition() Definition {
	return Definition{
		Name:        "get_order_status",
		Description: "Get the current status of an order, including item details and special instructions.",
		InputSchema: GenerateSchema[getOrderStatusInput](),
		Handler:     k.getOrderStatus,
	}
}

func (k *Toolkit) getOrderStatus(ctx context.Context, input json.RawMessage) (string, error) {
	var in getOrderStatusInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.OrderID == 0 {
		return "", Validationf("order_id is required")
	}

	info, err := k.store.GetOrderStatus(ctx, in.OrderID)
	if errors.Is(err, restaurant.ErrNotFound) {
		return "Order not found.", nil
	}
	if err != nil {
		return "", err
	}

	var items strings.Builder
	for _, item := range info.Items {
		fmt.Fprintf(&items, "- %s x%d ($%.2f)", item.ItemName, item.Quantity, item.Price*float64(item.Quantity))
		if item.SpecialInstructions != "" {
			fmt.Fprintf(&items, " - Special Instructions: %s", item.SpecialInstructions)
		}
		items.WriteString("\n")
	}

	return fmt.Sprintf(`Order status: %s
Order ID: %d
Order Date: %s
Order Type: %s
Total Amount: $%.2f

Items:
%s`, info.Status, info.OrderID, info.OrderDate, info.OrderType, info.TotalAmount,
		strings.TrimRight(items.String(), "\n")), nil
}
