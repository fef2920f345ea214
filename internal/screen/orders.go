package screen

import (
	"context"
	"errors"
	"fmt"

	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/navigation"
	"peelojuice-staff/internal/service"
)

type DashboardView struct {
	Staff  *model.StaffProfile
	Branch *model.BranchProfile
	Stats  model.DashboardStats
	Recent []model.Order
}

type ProfileView struct {
	Staff  *model.StaffProfile
	Branch *model.BranchProfile
}

func (s *Screens) Dashboard(ctx context.Context) (DashboardView, Outcome) {
	state := s.session.Snapshot()
	view := DashboardView{Staff: state.Staff, Branch: state.Branch}

	orders, err := s.orders.List(ctx)
	if err != nil {
		return view, failure("Error", errorMessage(err, "Failed to load orders"))
	}

	view.Stats = service.Stats(orders)
	view.Recent = service.Recent(orders, s.recentLimit)
	return view, Outcome{Kind: KindSuccess}
}

func (s *Screens) Orders(ctx context.Context, tab service.Tab) ([]model.Order, Outcome) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, failure("Error", errorMessage(err, "Failed to load orders"))
	}
	return service.FilterTab(orders, tab), Outcome{Kind: KindSuccess}
}

func (s *Screens) OrderDetail(ctx context.Context, id int64) (model.Order, Outcome) {
	if id <= 0 {
		return model.Order{}, failure("Error", "No order ID provided")
	}

	order, err := s.orders.Get(ctx, id)
	if err != nil {
		reason := "Please try again."
		if errors.Is(err, model.ErrNotFound) {
			reason = "Order not found or not accessible."
		}
		return model.Order{}, failure("Error", fmt.Sprintf("Failed to load order #%d. %s", id, reason))
	}
	return order, Outcome{Kind: KindSuccess}
}

// UpdateOrderStatus applies next to order and returns the refreshed order.
func (s *Screens) UpdateOrderStatus(ctx context.Context, order model.Order, next model.OrderStatus) (model.Order, Outcome) {
	updated, err := s.orders.UpdateStatus(ctx, order, next)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrStatusUnchanged):
		return order, Outcome{Kind: KindInfo, Title: "Info", Message: "Status is already set to this value"}
	case errors.Is(err, model.ErrTerminalStatus):
		return order, failure("Cannot Update", "Cannot modify delivered or cancelled orders")
	case errors.Is(err, model.ErrInvalidStatus):
		return order, failure("Error", fmt.Sprintf("%q is not a valid status", next))
	default:
		return order, failure("Error", errorMessage(err, "Failed to update status"))
	}

	done := Outcome{Kind: KindSuccess, Title: "Success", Message: "Order status updated successfully"}

	refreshed, err := s.orders.Get(ctx, order.ID)
	if err != nil {
		return updated, done
	}
	return refreshed, done
}

func (s *Screens) Profile() ProfileView {
	state := s.session.Snapshot()
	return ProfileView{Staff: state.Staff, Branch: state.Branch}
}

func (s *Screens) Logout(ctx context.Context) Outcome {
	s.session.Logout(ctx)
	return Outcome{Kind: KindSuccess, Title: "Logout", Message: "You have been signed out.", Next: navigation.ScreenLogin}
}
