package http

import (
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/profile"
)

// ProfileHandler serves the profile page of the signed-in visitor. The page
// service is built per request around the visitor's session manager.
type ProfileHandler struct {
	profiles profile.Updater
	orders   profile.OrderLister
}

func NewProfileHandler(profiles profile.Updater, orders profile.OrderLister) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, orders: orders}
}

type UpdateProfileRequestDTO struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	v := visitorFrom(r.Context())
	user := v.User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to view your profile")
		return
	}

	page := h.service(v).Load(r.Context(), user)
	page.Orders = orEmpty(page.Orders)
	if page.RedirectToSignIn {
		respondJSON(w, http.StatusConflict, page)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	v := visitorFrom(r.Context())
	user := v.User()
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "sign in to edit your profile")
		return
	}

	var req UpdateProfileRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	p := h.service(v).Save(r.Context(), user, strings.TrimSpace(req.Username), strings.TrimSpace(req.AvatarURL))
	if p == nil {
		respondError(w, http.StatusBadGateway, "profile_not_saved", "profile could not be updated")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) service(v *Visitor) *profile.Service {
	return profile.NewService(v.Manager, h.profiles, h.orders, v.Notes)
}
