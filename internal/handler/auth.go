package handler

import (
	"net/http"
	"strings"

	"github.com/msomdec/client-registry/internal/service"
)

// AuthHandler handles user registration and login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// HandleRegister processes a JSON registration request.
// POST /api/users
// Request:  {"username":"...","email":"...","password":"..."}
// Response: 201 {"success":true,"message":"...","user":{...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if missing := missingStrings(map[string]string{
		"username": req.Username,
		"email":    req.Email,
		"password": req.Password,
	}, "username", "email", "password"); len(missing) > 0 {
		writeMissingFields(w, "username, email and password are required.", missing)
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, "register user", err)
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered successfully.", envelope{
		"user": toUserDTO(user),
	})
}

// HandleLogin verifies credentials and returns the token in the
// Authorization response header.
// POST /api/users/login
// Request:  {"email":"...","password":"..."}
// Response: {"success":true,"message":"...","expiresIn":3600}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if missing := missingStrings(map[string]string{
		"email":    req.Email,
		"password": req.Password,
	}, "email", "password"); len(missing) > 0 {
		writeMissingFields(w, "email and password are required.", missing)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "login user", err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+result.Token)
	writeSuccess(w, http.StatusOK, "Login successful.", envelope{
		"expiresIn": int64(result.ExpiresIn.Seconds()),
	})
}

// missingStrings returns the names, in order, whose values are blank.
func missingStrings(values map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
