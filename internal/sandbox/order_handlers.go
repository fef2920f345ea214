package sandbox

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"peelojuice-staff/internal/middleware"
	"peelojuice-staff/internal/model"
)

type orderListResponse struct {
	Count  int           `json:"count"`
	Orders []model.Order `json:"orders"`
}

// branchOf resolves the caller's branch, or writes an error.
func (s *Server) branchOf(w http.ResponseWriter, r *http.Request) (int64, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, fail(http.StatusUnauthorized, "detail", "Authentication credentials were not provided."))
		return 0, false
	}

	s.mu.RLock()
	acct, exists := s.accounts[principal.UserID]
	var branch *model.BranchProfile
	if exists {
		branch = acct.profile.AssignedBranch
	}
	s.mu.RUnlock()

	if branch == nil {
		writeError(w, fail(http.StatusForbidden, "error", "No branch assigned to this staff account"))
		return 0, false
	}
	return branch.ID, true
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	branchID, ok := s.branchOf(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	orders := make([]model.Order, 0, len(s.orders))
	for id, order := range s.orders {
		if s.orderBranch[id] == branchID {
			orders = append(orders, *order)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(orders, func(a, b model.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	writeJSON(w, http.StatusOK, orderListResponse{Count: len(orders), Orders: orders})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	branchID, ok := s.branchOf(w, r)
	if !ok {
		return
	}

	order, err := s.findOrder(r, branchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := s.branchOf(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	next, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(w, fieldErrors(map[string]string{"status": strconv.Quote(req.Status) + " is not a valid choice."}))
		return
	}

	current, err := s.findOrder(r, branchID)
	if err != nil {
		writeError(w, err)
		return
	}
	if current.Status.Terminal() {
		writeError(w, fail(http.StatusBadRequest, "error", "Cannot update delivered or cancelled orders"))
		return
	}

	s.mu.Lock()
	stored := s.orders[current.ID]
	stored.Status = next
	updated := *stored
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) findOrder(r *http.Request, branchID int64) (model.Order, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		return model.Order{}, fail(http.StatusNotFound, "detail", "Not found.")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[id]
	if !exists || s.orderBranch[id] != branchID {
		return model.Order{}, fail(http.StatusNotFound, "detail", "Not found.")
	}
	return *order, nil
}
