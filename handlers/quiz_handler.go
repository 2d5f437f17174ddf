package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *services.QuizService
	log         *logger.Logger
}

func NewQuizHandler(quizService *services.QuizService, log *logger.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		log:         log.With("handler", "QuizHandler"),
	}
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req services.CreateQuizRequest
	if !bindJSON(c, &req) {
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// GetQuizzes lists public quizzes plus the caller's own private ones.
func (h *QuizHandler) GetQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

func (h *QuizHandler) GetUserQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.ListByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quizzes)
}

// GetQuizByID accepts either a quiz id or a referral code.
func (h *QuizHandler) GetQuizByID(c *gin.Context) {
	quiz, err := h.quizService.GetByIDOrCode(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	var req services.UpdateQuizRequest
	if !bindJSON(c, &req) {
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	res, err := h.quizService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *QuizHandler) AddQuestion(c *gin.Context) {
	quiz, err := h.quizService.AddQuestion(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("questionid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) AddQuizType(c *gin.Context) {
	quiz, err := h.quizService.AddQuizType(c.Request.Context(), middleware.UserID(c), c.Param("id"), c.Param("quiztypeid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}
