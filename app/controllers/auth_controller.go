package controllers

import (
	"net/http"

	"forumhub/app/auth"
	"forumhub/app/models"
	"forumhub/app/services"
)

// AuthController handles sign-up, sign-in and sign-out
type AuthController struct {
	authService *services.AuthService
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// SignUp registers a new account
func (ac *AuthController) SignUp(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		handleError(w, r, "sign up", err)
		return
	}

	session, err := ac.authService.SignUp(creds)
	if err != nil {
		handleError(w, r, "sign up", err)
		return
	}
	sendJSON(w, http.StatusCreated, session)
}

// Login signs an existing account in
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &creds); err != nil {
		handleError(w, r, "sign in", err)
		return
	}

	session, err := ac.authService.SignIn(creds.Email, creds.Password)
	if err != nil {
		handleError(w, r, "sign in", err)
		return
	}
	sendJSON(w, http.StatusOK, session)
}

// Logout revokes the caller's token
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	if err := ac.authService.SignOut(claims); err != nil {
		handleError(w, r, "sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's own account
func (ac *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user, err := ac.authService.Me(auth.UserID(r.Context()))
	if err != nil {
		handleError(w, r, "load profile", err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}
