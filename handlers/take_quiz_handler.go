package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type TakeQuizHandler struct {
	takeQuizService *services.TakeQuizService
	log             *logger.Logger
}

func NewTakeQuizHandler(takeQuizService *services.TakeQuizService, log *logger.Logger) *TakeQuizHandler {
	return &TakeQuizHandler{takeQuizService: takeQuizService, log: log.With("handler", "TakeQuizHandler")}
}

func (h *TakeQuizHandler) Create(c *gin.Context) {
	var req services.CreateTakeQuizRequest
	if !bindJSON(c, &req) {
		return
	}

	attempt, err := h.takeQuizService.Create(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

func (h *TakeQuizHandler) List(c *gin.Context) {
	attempts, err := h.takeQuizService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *TakeQuizHandler) ListMine(c *gin.Context) {
	attempts, err := h.takeQuizService.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (h *TakeQuizHandler) Get(c *gin.Context) {
	attempt, err := h.takeQuizService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

func (h *TakeQuizHandler) Delete(c *gin.Context) {
	attempt, err := h.takeQuizService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}
