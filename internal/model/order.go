package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

var statusLabels = map[OrderStatus]string{
	StatusPending:        "Pending",
	StatusConfirmed:      "Confirmed",
	StatusPreparing:      "Preparing",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// SelectableStatuses are the targets staff may pick when updating an order.
var SelectableStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusOutForDelivery,
}

// Selectable reports whether staff may move an order to s.
func (s OrderStatus) Selectable() bool {
	return slices.Contains(SelectableStatuses, s)
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal reports whether no further status change is permitted.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: order status: %v", ErrMalformedResponse, err)
	}
	if !OrderStatus(raw).Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrMalformedResponse, raw)
	}
	*s = OrderStatus(raw)
	return nil
}

// Amount is a decimal money value that the server sends either as a string
// ("12.50") or as a JSON number.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*a = Amount(raw)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("%w: amount: %v", ErrMalformedResponse, err)
	}
	*a = Amount(num.String())
	return nil
}

func (a Amount) String() string {
	if a == "" {
		return "0"
	}
	return string(a)
}

type OrderCustomer struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

type OrderItem struct {
	ID           int64  `json:"id"`
	JuiceName    string `json:"juice_name"`
	Quantity     int    `json:"quantity"`
	PricePerItem Amount `json:"price_per_item"`
}

type Payment struct {
	Method string `json:"method"`
}

type Order struct {
	ID          int64         `json:"id"`
	OrderNumber string        `json:"order_number"`
	Status      OrderStatus   `json:"status"`
	TotalAmount Amount        `json:"total_amount"`
	CreatedAt   time.Time     `json:"created_at"`
	User        OrderCustomer `json:"user"`
	Items       []OrderItem   `json:"items"`
	Payment     *Payment      `json:"payment,omitempty"`
}

// DashboardStats are the counters shown on the branch dashboard.
type DashboardStats struct {
	Total          int `json:"total"`
	Pending        int `json:"pending"`
	Preparing      int `json:"preparing"`
	OutForDelivery int `json:"out_for_delivery"`
}
