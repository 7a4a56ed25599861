// Package api exposes the server's HTTP/JSON surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dpetukhov/rosterhub/internal/common"
	"github.com/dpetukhov/rosterhub/internal/logging"
	"github.com/dpetukhov/rosterhub/internal/server/accounts"
	"github.com/dpetukhov/rosterhub/internal/server/blob"
	"github.com/dpetukhov/rosterhub/internal/server/models"
)

// Service contracts consumed by the handlers; the concrete services in
// accounts/directory/blob satisfy them, and tests substitute fakes.
type Accounts interface {
	Register(ctx context.Context, email, password string) (*accounts.TokenBundle, error)
	SignIn(ctx context.Context, email, password string) (*accounts.TokenBundle, error)
	Refresh(ctx context.Context, refreshToken string) (*accounts.TokenBundle, error)
	SignOut(ctx context.Context, refreshToken string) error
}

type Directory interface {
	PutProfile(ctx context.Context, p *models.Profile) error
	ListPage(ctx context.Context, afterTS time.Time, afterID string, limit int) ([]*models.Profile, error)
}

type Blobs interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Error codes sent alongside non-2xx statuses so clients can react without
// parsing message text.
const (
	codeCredentialRejected = "credential_rejected"
	codeTokenExpired       = "token_expired"
	codeRefreshExpired     = "refresh_expired"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeBadRequest         = "bad_request"
	codeInternal           = "internal"
)

type Handler struct {
	accounts  Accounts
	directory Directory
	blobs     Blobs
	secretKey []byte
	logger    logging.Logger
}

func NewHandler(accounts Accounts, directory Directory, blobs Blobs, secretKey string, logger logging.Logger) *Handler {
	return &Handler{
		accounts:  accounts,
		directory: directory,
		blobs:     blobs,
		secretKey: []byte(secretKey),
		logger:    logger,
	}
}

// ---- wire types ----

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	UID          string `json:"uid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type profileRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url"`
}

type userJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

type usersPageResponse struct {
	Users []userJSON `json:"users"`
}

type uploadRequest struct {
	Key string `json:"key"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ---- handlers ----

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	bundle, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrEmailTaken),
			errors.Is(err, accounts.ErrInvalidEmail),
			errors.Is(err, accounts.ErrWeakPassword):
			h.writeError(w, r, http.StatusBadRequest, err.Error(), codeCredentialRejected)
		default:
			h.internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{UID: bundle.UID, AccessToken: bundle.AccessToken, RefreshToken: bundle.RefreshToken})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	bundle, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			h.writeError(w, r, http.StatusUnauthorized, common.ErrUnauthorized.Error(), codeCredentialRejected)
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{UID: bundle.UID, AccessToken: bundle.AccessToken, RefreshToken: bundle.RefreshToken})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	bundle, err := h.accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenExpired) {
			h.writeError(w, r, http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error(), codeRefreshExpired)
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{UID: bundle.UID, AccessToken: bundle.AccessToken, RefreshToken: bundle.RefreshToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.SignOut(r.Context(), req.RefreshToken); err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PutUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != userID(r.Context()) {
		h.writeError(w, r, http.StatusForbidden, "cannot write another user's profile", codeForbidden)
		return
	}

	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	p := &models.Profile{
		UserID:          id,
		Name:            req.Name,
		Email:           req.Email,
		ProfileImageURL: req.ProfileImageURL,
	}
	if err := h.directory.PutProfile(r.Context(), p); err != nil {
		h.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid limit", codeBadRequest)
			return
		}
		limit = n
	}

	var afterTS time.Time
	if v := q.Get("after_ts"); v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid after_ts", codeBadRequest)
			return
		}
		afterTS = ts
	}

	page, err := h.directory.ListPage(r.Context(), afterTS, q.Get("after_id"), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := usersPageResponse{Users: make([]userJSON, 0, len(page))}
	for _, p := range page {
		resp.Users = append(resp.Users, userJSON{
			ID:              p.UserID,
			Name:            p.Name,
			Email:           p.Email,
			ProfileImageURL: p.ProfileImageURL,
			CreatedAt:       p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !h.decode(w, r, &req) {
		return
	}

	// Clients may only write their own avatar object.
	if req.Key != blob.AvatarKeyPrefix+userID(r.Context()) {
		h.writeError(w, r, http.StatusForbidden, "cannot upload to this key", codeForbidden)
		return
	}

	url, err := h.blobs.PresignPut(r.Context(), req.Key)
	if err != nil {
		if errors.Is(err, blob.ErrInvalidKey) {
			h.writeError(w, r, http.StatusBadRequest, err.Error(), codeBadRequest)
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (h *Handler) GetUploadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	url, err := h.blobs.PresignGet(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrInvalidKey) {
			h.writeError(w, r, http.StatusBadRequest, err.Error(), codeBadRequest)
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

// ---- helpers ----

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body", codeBadRequest)
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	h.writeError(w, r, http.StatusInternalServerError, common.ErrInternal.Error(), codeInternal)
}

func (h *Handler) writeError(w http.ResponseWriter, _ *http.Request, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, errors.New("too large")
		}
	}
	return n, nil
}
