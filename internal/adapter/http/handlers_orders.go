package adapthttp

import (
	"net/http"

	"storefront/internal/domain"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID  *int64 `json:"client_id"`
		ProductID *int64 `json:"product_id"`
		Quantity  *int   `json:"quantity"`
	}
	if err := parseJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.ClientID == nil || req.ProductID == nil || req.Quantity == nil {
		s.fail(w, r, domain.ErrMissingOrderFields)
		return
	}

	o, err := s.orders.Place(r.Context(), *req.ClientID, *req.ProductID, *req.Quantity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Order created successfully",
		"id":          o.ID,
		"total_price": o.TotalPrice,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.fail(w, r, domain.ErrOrderNotFound)
		return
	}
	if err := s.orders.Cancel(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order deleted successfully")
}
