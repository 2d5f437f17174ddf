package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type EmailHandler struct {
	emailService *services.EmailService
	log          *logger.Logger
}

func NewEmailHandler(emailService *services.EmailService, log *logger.Logger) *EmailHandler {
	return &EmailHandler{emailService: emailService, log: log.With("handler", "EmailHandler")}
}

func (h *EmailHandler) SignUp(c *gin.Context) {
	var req services.SendEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.emailService.SendSignupVerification(c.Request.Context(), req.RecipientEmail); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
}

func (h *EmailHandler) ForgotPassword(c *gin.Context) {
	var req services.SendEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.emailService.SendPasswordReset(c.Request.Context(), req.RecipientEmail); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}
