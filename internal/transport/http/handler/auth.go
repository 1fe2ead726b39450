package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gopherchat/internal/app"
	"gopherchat/internal/transport/http/middleware"
	"gopherchat/internal/transport/http/response"
)

type AuthHandler struct {
	credentials *app.CredentialStore
	auth        *app.SessionAuthenticator
	cookie      CookieSettings
}

type CookieSettings struct {
	Name   string
	Secure bool
}

type CredentialsRequest struct {
	Username string `json:"username" binding:"max=256"`
	Password string `json:"password" binding:"max=256"`
}

func NewAuthHandler(credentials *app.CredentialStore, auth *app.SessionAuthenticator, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{credentials: credentials, auth: auth, cookie: cookie}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	userID, err := h.credentials.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDuplicateUsername):
			response.Error(c, http.StatusBadRequest, response.CodeUsernameExists, "Username already exists")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	response.Created(c, "Registration successful", gin.H{"user_id": userID})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrUnauthenticated):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "Invalid username or password")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, result.Token, int(time.Until(result.ExpiresAt).Seconds()), "/", "", h.cookie.Secure, true)
	response.OK(c, gin.H{
		"message":    "Login successful",
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user": gin.H{
			"id":       result.Session.UserID,
			"username": result.Session.Username,
		},
	})
}

// Logout always succeeds for the client: a missing, expired or already ended
// session is simply gone, and the cookie is cleared either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	result := h.auth.Authenticate(ctx, middleware.TokenFromRequest(c, h.cookie.Name))
	if errors.Is(result.Reason, app.ErrStorage) {
		response.Error(c, http.StatusInternalServerError, response.CodeStorage, "logout failed")
		return
	}
	if result.Authorized() {
		if err := h.auth.Logout(ctx, result.Session.ID); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeStorage, "logout failed")
			return
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	response.OK(c, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Please login first")
		return
	}

	user, err := h.credentials.GetUser(c.Request.Context(), sess.UserID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeStorage, "fetch current user failed")
		return
	}
	if user == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}

	response.OK(c, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}
