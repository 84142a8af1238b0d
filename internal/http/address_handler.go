package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AddressBook interface {
	ListForUser(ctx context.Context, userID string) []domain.Address
	Get(ctx context.Context, id int64) *domain.Address
	Create(ctx context.Context, addr domain.Address) *domain.Address
	Update(ctx context.Context, id int64, addr domain.Address) *domain.Address
	Delete(ctx context.Context, id int64) bool
}

type AddressHandler struct {
	addresses AddressBook
}

func NewAddressHandler(addresses AddressBook) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

type AddressRequestDTO struct {
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	IsDefault bool   `json:"is_default"`
}

func (d AddressRequestDTO) address(userID string) domain.Address {
	return domain.Address{
		UserID:    userID,
		Street:    strings.TrimSpace(d.Street),
		City:      strings.TrimSpace(d.City),
		State:     strings.TrimSpace(d.State),
		ZipCode:   strings.TrimSpace(d.ZipCode),
		Country:   strings.TrimSpace(d.Country),
		IsDefault: d.IsDefault,
	}
}

func (d AddressRequestDTO) valid() bool {
	return strings.TrimSpace(d.Street) != "" &&
		strings.TrimSpace(d.City) != "" &&
		strings.TrimSpace(d.ZipCode) != "" &&
		strings.TrimSpace(d.Country) != ""
}

func (h *AddressHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	user := visitorFrom(r.Context()).User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to manage addresses")
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(h.addresses.ListForUser(r.Context(), user.ID)))
}

func (h *AddressHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	user := visitorFrom(r.Context()).User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to manage addresses")
		return
	}

	var req AddressRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.valid() {
		respondError(w, http.StatusBadRequest, "invalid_address", "street, city, zip_code and country are required")
		return
	}

	addr := h.addresses.Create(r.Context(), req.address(user.ID))
	if addr == nil {
		respondError(w, http.StatusBadGateway, "address_not_saved", "address could not be saved")
		return
	}
	respondJSON(w, http.StatusCreated, addr)
}

func (h *AddressHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req AddressRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.valid() {
		respondError(w, http.StatusBadRequest, "invalid_address", "street, city, zip_code and country are required")
		return
	}

	addr := h.addresses.Update(r.Context(), id, req.address(user.ID))
	if addr == nil {
		respondError(w, http.StatusBadGateway, "address_not_saved", "address could not be saved")
		return
	}
	respondJSON(w, http.StatusOK, addr)
}

func (h *AddressHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.owned(w, r)
	if !ok {
		return
	}

	if !h.addresses.Delete(r.Context(), id) {
		respondError(w, http.StatusBadGateway, "address_not_deleted", "address could not be deleted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// owned resolves the signed-in user and the address id from the path, and
// answers 404 when the address belongs to someone else.
func (h *AddressHandler) owned(w http.ResponseWriter, r *http.Request) (*domain.User, int64, bool) {
	user := visitorFrom(r.Context()).User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to manage addresses")
		return nil, 0, false
	}
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_address_id", "id must be a positive integer")
		return nil, 0, false
	}
	addr := h.addresses.Get(r.Context(), id)
	if addr == nil || addr.UserID != user.ID {
		respondError(w, http.StatusNotFound, "not_found", "address not found")
		return nil, 0, false
	}
	return user, id, true
}
