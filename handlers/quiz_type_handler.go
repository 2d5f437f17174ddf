package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type QuizTypeHandler struct {
	quizTypeService *services.QuizTypeService
	log             *logger.Logger
}

func NewQuizTypeHandler(quizTypeService *services.QuizTypeService, log *logger.Logger) *QuizTypeHandler {
	return &QuizTypeHandler{quizTypeService: quizTypeService, log: log.With("handler", "QuizTypeHandler")}
}

func (h *QuizTypeHandler) List(c *gin.Context) {
	types, err := h.quizTypeService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

func (h *QuizTypeHandler) Popular(c *gin.Context) {
	popular, err := h.quizTypeService.Popular(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, popular)
}

func (h *QuizTypeHandler) Get(c *gin.Context) {
	qt, err := h.quizTypeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, qt)
}

func (h *QuizTypeHandler) Create(c *gin.Context) {
	var req services.QuizTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	qt, err := h.quizTypeService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, qt)
}

func (h *QuizTypeHandler) Rename(c *gin.Context) {
	var req services.QuizTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	qt, err := h.quizTypeService.Rename(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, qt)
}

func (h *QuizTypeHandler) Delete(c *gin.Context) {
	qt, err := h.quizTypeService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, qt)
}
