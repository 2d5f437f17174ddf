package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *logger.Logger
}

func NewAuthHandler(authService *services.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log.With("handler", "AuthHandler")}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.SignUp(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	var req services.GoogleAuthRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.authService.GoogleSignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// SignUpVerify redeems the token from the verification link.
func (h *AuthHandler) SignUpVerify(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), token); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
