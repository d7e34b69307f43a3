package adapthttp

import (
	"net/http"

	"github.com/shopspring/decimal"

	"storefront/internal/app"
	"storefront/internal/domain"
)

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := parseJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in := app.NewProduct{Description: req.Description, Price: req.Price, Stock: req.Stock}
	if req.Name != nil {
		in.Name = *req.Name
	}

	p, err := s.products.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"id":      p.ID,
	})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.fail(w, r, domain.ErrProductNotFound)
		return
	}
	var req productRequest
	if err := parseJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	_, err := s.products.Update(r.Context(), id, domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product updated successfully")
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.fail(w, r, domain.ErrProductNotFound)
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted successfully")
}
