package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"peelojuice-staff/internal/event"
	"peelojuice-staff/internal/model"
)

const (
	pathStaffOrders = "/api/orders/staff-orders/"

	DefaultRecentLimit = 5
)

// Tab selects a subset of the order list.
type Tab string

const (
	TabActive    Tab = "active"
	TabCompleted Tab = "completed"
)

var tabStatuses = map[Tab][]model.OrderStatus{
	TabActive:    {model.StatusPending, model.StatusConfirmed, model.StatusPreparing},
	TabCompleted: {model.StatusOutForDelivery, model.StatusDelivered},
}

func ParseTab(raw string) (Tab, error) {
	tab := Tab(raw)
	if _, ok := tabStatuses[tab]; !ok {
		return "", fmt.Errorf("%w: unknown tab %q", model.ErrInvalidInput, raw)
	}
	return tab, nil
}

// StatusChange is the payload of an order.updated event.
type StatusChange struct {
	OrderID     int64             `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        model.OrderStatus `json:"from"`
	To          model.OrderStatus `json:"to"`
}

type OrderService struct {
	api API
	bus event.Bus
}

// NewOrderService builds the order service. bus may be nil.
func NewOrderService(api API, bus event.Bus) *OrderService {
	return &OrderService{api: api, bus: bus}
}

func (s *OrderService) List(ctx context.Context) ([]model.Order, error) {
	var orders orderList
	if err := s.api.Get(ctx, pathStaffOrders, &orders); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id int64) (model.Order, error) {
	if id <= 0 {
		return model.Order{}, fmt.Errorf("%w: order id must be positive", model.ErrInvalidInput)
	}

	var order model.Order
	if err := s.api.Get(ctx, orderPath(id), &order); err != nil {
		return model.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return order, nil
}

// UpdateStatus moves current to next. Terminal orders, no-op changes and
// unknown targets are refused before any request is sent.
func (s *OrderService) UpdateStatus(ctx context.Context, current model.Order, next model.OrderStatus) (model.Order, error) {
	if current.ID <= 0 {
		return model.Order{}, fmt.Errorf("%w: order id must be positive", model.ErrInvalidInput)
	}
	if err := CheckTransition(current, next); err != nil {
		return model.Order{}, err
	}

	path := "/api/orders/admin/orders/" + strconv.FormatInt(current.ID, 10) + "/update-status/"

	var updated model.Order
	if err := s.api.Post(ctx, path, model.UpdateStatusRequest{Status: next}, &updated); err != nil {
		return model.Order{}, fmt.Errorf("update order %d status: %w", current.ID, err)
	}

	if s.bus != nil {
		s.bus.Publish(event.New(event.TypeOrderUpdated, "", StatusChange{
			OrderID:     current.ID,
			OrderNumber: current.OrderNumber,
			From:        current.Status,
			To:          next,
		}))
	}

	return updated, nil
}

// CheckTransition applies the client-side gates in the order the detail
// screen reports them: unchanged, then terminal, then unknown or
// non-selectable targets.
func CheckTransition(current model.Order, next model.OrderStatus) error {
	if next == current.Status {
		return fmt.Errorf("%w: %s", model.ErrStatusUnchanged, next)
	}
	if current.Status.Terminal() {
		return fmt.Errorf("%w: order %s is %s", model.ErrTerminalStatus, current.OrderNumber, current.Status)
	}
	if !next.Selectable() {
		return fmt.Errorf("%w: %q", model.ErrInvalidStatus, next)
	}
	return nil
}

// Stats counts orders for the dashboard.
func Stats(orders []model.Order) model.DashboardStats {
	stats := model.DashboardStats{Total: len(orders)}
	for _, order := range orders {
		switch order.Status {
		case model.StatusPending:
			stats.Pending++
		case model.StatusPreparing:
			stats.Preparing++
		case model.StatusOutForDelivery:
			stats.OutForDelivery++
		}
	}
	return stats
}

// Recent returns the first n orders in server order.
func Recent(orders []model.Order, n int) []model.Order {
	if n <= 0 {
		n = DefaultRecentLimit
	}
	if len(orders) < n {
		n = len(orders)
	}
	return orders[:n]
}

func FilterTab(orders []model.Order, tab Tab) []model.Order {
	statuses := tabStatuses[tab]
	out := make([]model.Order, 0, len(orders))
	for _, order := range orders {
		for _, status := range statuses {
			if order.Status == status {
				out = append(out, order)
				break
			}
		}
	}
	return out
}

func orderPath(id int64) string {
	return pathStaffOrders + strconv.FormatInt(id, 10) + "/"
}

// orderList accepts either a bare array or an object with an "orders" array.
type orderList []model.Order

func (l *orderList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty order list", model.ErrMalformedResponse)
	}

	switch data[0] {
	case '[':
		var orders []model.Order
		if err := json.Unmarshal(data, &orders); err != nil {
			return wrapMalformed("order list", err)
		}
		*l = orders
		return nil
	case '{':
		var envelope struct {
			Orders *[]model.Order `json:"orders"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return wrapMalformed("order list", err)
		}
		if envelope.Orders == nil {
			return fmt.Errorf("%w: order list object has no orders array", model.ErrMalformedResponse)
		}
		*l = *envelope.Orders
		return nil
	default:
		return fmt.Errorf("%w: order list is neither an array nor an object", model.ErrMalformedResponse)
	}
}

func wrapMalformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrMalformedResponse, what, err)
}
