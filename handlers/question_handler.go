package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	questionService *services.QuestionService
	log             *logger.Logger
}

func NewQuestionHandler(questionService *services.QuestionService, log *logger.Logger) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, log: log.With("handler", "QuestionHandler")}
}

func (h *QuestionHandler) Create(c *gin.Context) {
	var req services.CreateQuestionRequest
	if !bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

func (h *QuestionHandler) Get(c *gin.Context) {
	question, err := h.questionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) Update(c *gin.Context) {
	var req services.UpdateQuestionRequest
	if !bindJSON(c, &req) {
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) Delete(c *gin.Context) {
	question, err := h.questionService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, question)
}
