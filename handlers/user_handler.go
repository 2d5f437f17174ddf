package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
	log         *logger.Logger
}

func NewUserHandler(userService *services.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log.With("handler", "UserHandler")}
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.ChangePassword(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ChangeUsername(c *gin.Context) {
	var req services.ChangeUsernameRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.ChangeUsername(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ResetPassword is authorized by the reset token from the emailed link, not
// by an access token.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.ResetPassword(c.Request.Context(), token, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	res, err := h.userService.Delete(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
