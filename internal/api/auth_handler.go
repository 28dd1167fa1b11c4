package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskstream/taskstream/internal/api/shared"
	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/service/auth"
	"github.com/taskstream/taskstream/internal/store"
)

// AuthHandler serves registration, token issuance and token validation,
// plus the identity directory endpoints other services resolve users
// through.
type AuthHandler struct {
	users     store.UserStore
	jwt       auth.JWTService
	passwords auth.PasswordVerifier
}

// NewAuthHandler creates an AuthHandler with the given dependencies.
func NewAuthHandler(
	users store.UserStore,
	jwt auth.JWTService,
	passwords auth.PasswordVerifier,
) *AuthHandler {
	return &AuthHandler{
		users:     users,
		jwt:       jwt,
		passwords: passwords,
	}
}

// Routes mounts the handler's endpoints on a fresh router.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/token", h.Token)
	r.Get("/auth/validateToken", h.ValidateToken)
	r.Get("/user/{email}", h.GetUserByEmail)
	r.Get("/user/id/{id}", h.GetUserByID)
	r.Get("/user/{email}/roles", h.GetUserRoles)
	return r
}

// Register creates a new user account and returns an access token so the
// caller is signed in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid registration data")
		return
	}

	user, err := domain.NewUser(req.Email, req.FirstName, req.LastName)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, http.StatusInternalServerError, "Failed to register user", err)
		return
	}
	user.HashedPassword = hashed

	if err := h.users.Create(r.Context(), user); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	token, err := h.jwt.GenerateToken(r.Context(), user.Email)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, TokenResponse{Token: token})
}

// Token verifies the caller's credentials and issues an access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid credentials payload")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// A wrong email and a wrong password look the same to the caller.
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.passwords.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.jwt.GenerateToken(r.Context(), user.Email)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{Token: token})
}

// ValidateToken checks the token passed in the query string and, when it
// verifies, returns the identity it belongs to. A token whose signature
// verifies but whose subject is no longer registered is reported the same
// way as the subject being gone, not as a bad token.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Token is required")
		return
	}

	claims, err := h.jwt.ValidateToken(r.Context(), token)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	user, err := h.users.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "User not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ValidateTokenResponse{
		ID:    user.ID,
		Email: user.Email,
	})
}

// GetUserByEmail resolves a directory user by email handle.
func (h *AuthHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// GetUserByID resolves a directory user by numeric ID.
func (h *AuthHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// GetUserRoles returns the role tags assigned to a directory user.
func (h *AuthHandler) GetUserRoles(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	roles := []string{}
	if user.Role != "" {
		roles = append(roles, user.Role)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, roles)
}
