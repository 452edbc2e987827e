package api

import (
	"fmt"
	"net/http"
	"strconv"

	"investai/internal/model"
	"investai/internal/recommend"
)

type handlers struct {
	deps Deps
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, u, err := h.deps.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{Email: u.Email, Token: token})
}

// login takes OAuth2 password-flow form fields: username, password and an
// optional otp.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid form", model.ErrBadRequest))
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, r, fmt.Errorf("%w: username and password are required", model.ErrBadRequest))
		return
	}
	token, err := h.deps.Auth.Login(r.Context(), username, password, r.PostForm.Get("otp"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Auth.Logout(r.Context(), principalFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "logged out"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.deps.Auth.Me(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           u.ID,
		"email":        u.Email,
		"totp_enabled": u.TOTPEnabled,
	})
}

func (h *handlers) enrollTOTP(w http.ResponseWriter, r *http.Request) {
	secret, url, err := h.deps.Auth.EnrollTOTP(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": secret, "url": url})
}

func (h *handlers) confirmTOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.deps.Auth.ConfirmTOTP(r.Context(), principalFrom(r.Context()).UserID, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "two-factor authentication enabled"})
}

func (h *handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	symbol, err := recommend.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.deps.Favorites.Add(r.Context(), principalFrom(r.Context()).UserID, symbol); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": symbol + " added to favorites"})
}

func (h *handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	symbol, err := recommend.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.deps.Favorites.Remove(r.Context(), principalFrom(r.Context()).UserID, symbol); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": symbol + " removed from favorites"})
}

func (h *handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.deps.Favorites.List(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, symbols)
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, r, fmt.Errorf("%w: symbol is required", model.ErrBadRequest))
		return
	}
	rec, err := h.deps.Recommender.Recommend(r.Context(), principalFrom(r.Context()).UserID, symbol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := ""
	if raw := q.Get("symbol"); raw != "" {
		s, err := recommend.NormalizeSymbol(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		symbol = s
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", model.ErrBadRequest))
			return
		}
		limit = n
	}
	recs, err := h.deps.History.ListByUser(r.Context(), principalFrom(r.Context()).UserID, symbol, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
