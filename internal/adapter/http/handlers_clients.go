package adapthttp

import (
	"net/http"

	"storefront/internal/app"
	"storefront/internal/domain"
)

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.clients.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string  `json:"name"`
		Email    string  `json:"email"`
		Phone    *string `json:"phone"`
		Password string  `json:"password"`
		Role     string  `json:"role"`
	}
	if err := parseJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	c, err := s.clients.Create(r.Context(), app.NewClient{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Client created successfully",
		"id":      c.ID,
	})
}

func (s *Server) handleSetClientRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.fail(w, r, domain.ErrClientNotFound)
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := parseJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Role == "" {
		s.fail(w, r, domain.ErrInvalidRole)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.clients.SetRole(r.Context(), id, role); err != nil {
		s.fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Role updated successfully")
}
