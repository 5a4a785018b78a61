package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/annonest-api/internal/constants"
	"github.com/yukikurage/annonest-api/internal/dto"
	apierrors "github.com/yukikurage/annonest-api/internal/errors"
	"github.com/yukikurage/annonest-api/internal/middleware"
	"github.com/yukikurage/annonest-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup registers a new user and starts their session.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email            string `json:"email" binding:"required"`
		Password         string `json:"password" binding:"required"`
		Name             string `json:"name" binding:"required,max=255"`
		InviteCode       string `json:"invite_code"`
		OrganizationName string `json:"organization_name" binding:"max=255"`
	}

	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Email:            req.Email,
		Password:         req.Password,
		Name:             req.Name,
		InviteCode:       req.InviteCode,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if !h.startSession(c, user.ID) {
		return
	}

	c.JSON(http.StatusCreated, dto.ToMeDTO(*user, h.authService.CheckAccess(user) == nil))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if !h.startSession(c, user.ID) {
		return
	}

	c.JSON(http.StatusOK, dto.ToMeDTO(*user, h.authService.CheckAccess(user) == nil))
}

func (h *AuthHandler) startSession(c *gin.Context, userID uint64) bool {
	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, userID)
	if err := session.Save(); err != nil {
		apierrors.Respond(c, err)
		return false
	}
	return true
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user with the modules their role
// grants. It is reachable while approval is pending.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToMeDTO(*user, h.authService.CheckAccess(user) == nil))
}
