package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/bottegalabs/bottega/internal/restaurant"
)

type createOrUpdateCustomerInput struct {
	Name    string `json:"name" jsonschema_description:"Customer's full name."`
	Phone   string `json:"phone" jsonschema_description:"US phone number; stored in +1XXXXXXXXXX format."`
	Address string `json:"address,omitempty" jsonschema_description:"Street address (optional)."`
}

func (k *Toolkit) createOrUpdateCustomerDefinition() Definition {
	return Definition{
		Name:        "create_or_update_customer",
		Description: "Create a new customer or update the existing one matching the phone number. The phone number is standardized to +1XXXXXXXXXX. Address is optional.",
		InputSchema: GenerateSchema[createOrUpdateCustomerInput](),
		Handler:     k.createOrUpdateCustomer,
	}
}

func (k *Toolkit) createOrUpdateCustomer(ctx context.Context, input json.RawMessage) (string, error) {
	var in createOrUpdateCustomerInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.Name == "" {
		return "", Validationf("name is required")
	}
	if in.Phone == "" {
		return "", Validationf("phone is required")
	}

	id, created, err := k.store.UpsertCustomer(ctx, in.Name, in.Phone, in.Address)
	if errors.Is(err, restaurant.ErrInvalidPhone) {
		return "Error: Invalid phone number format. Please provide a valid US phone number.", nil
	}
	if err != nil {
		return "", err
	}
	if created {
		return fmt.Sprintf("New customer created. Customer ID: %d", id), nil
	}
	return fmt.Sprintf("Customer information updated. Customer ID: %d", id), nil
}

type updateCustomerAddressInput struct {
	CustomerID int64  `json:"customer_id" jsonschema_description:"Existing customer id."`
	Address    string `json:"address" jsonschema_description:"New street address."`
}

func (k *Toolkit) updateCustomerAddressDefinition() Definition {
	return Definition{
		Name:        "update_customer_address",
		Description: "Update the address for an existing customer.",
		InputSchema: GenerateSchema[updateCustomerAddressInput](),
		Handler:     k.updateCustomerAddress,
	}
}

func (k *Toolkit) updateCustomerAddress(ctx context.Context, input json.RawMessage) (string, error) {
	var in updateCustomerAddressInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.CustomerID == 0 {
		return "", Validationf("customer_id is required")
	}
	if in.Address == "" {
		return "", Validationf("address is required")
	}

	err := k.store.UpdateCustomerAddress(ctx, in.CustomerID, in.Address)
	if errors.Is(err, restaurant.ErrNotFound) {
		return fmt.Sprintf("No customer found with ID: %d", in.CustomerID), nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Address updated successfully for customer ID: %d", in.CustomerID), nil
}

type checkCustomerExistsInput struct {
	Phone string `json:"phone" jsonschema_description:"Phone number to look up."`
}

func (k *Toolkit) checkCustomerExistsDefinition() Definition {
	return Definition{
		Name:        "check_customer_exists",
		Description: "Check whether a customer exists for the given phone number.",
		InputSchema: GenerateSchema[checkCustomerExistsInput](),
		Handler:     k.checkCustomerExists,
	}
}

func (k *Toolkit) checkCustomerExists(ctx context.Context, input json.RawMessage) (string, error) {
	var in checkCustomerExistsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.Phone == "" {
		return "", Validationf("phone is required")
	}

	exists, err := k.store.CustomerExists(ctx, in.Phone)
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(exists), nil
}

type fetchCustomerOrdersInput struct {
	CustomerID int64 `json:"customer_id" jsonschema_description:"Customer id whose order history to fetch."`
}

func (k *Toolkit) fetchCustomerOrdersDefinition() Definition {
	return Definition{
		Name:        "fetch_customer_orders",
		Description: "Fetch all previous orders for a given customer, newest first.",
		InputSchema: GenerateSchema[fetchCustomerOrdersInput](),
		Handler:     k.fetchCustomerOrders,
	}
}

func (k *Toolkit) fetchCustomerOrders(ctx context.Context, input json.RawMessage) (string, error) {
	var in fetchCustomerOrdersInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", Validationf("invalid arguments: %v", err)
	}
	if in.CustomerID == 0 {
		return "", Validationf("customer_id is required")
	}

	orders, err := k.store.ListOrders(ctx, in.CustomerID)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "[]", nil
	}
	return marshalJSON(orders)
}

// marshalJSON renders structured tool output for the model.
func marshalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(raw), nil
}
