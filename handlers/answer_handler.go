package handlers

import (
	"net/http"
	"time"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
)

type AnswerHandler struct {
	answerService *services.AnswerService
	log           *logger.Logger
	now           func() time.Time
}

func NewAnswerHandler(answerService *services.AnswerService, log *logger.Logger) *AnswerHandler {
	return &AnswerHandler{answerService: answerService, log: log.With("handler", "AnswerHandler"), now: time.Now}
}

// SubmitBatch saves each answer on its own. 201 when all succeed, 207 when
// some fail, 422 when none could be saved.
func (h *AnswerHandler) SubmitBatch(c *gin.Context) {
	var req map[string]services.AnswerItem
	if !bindJSON(c, &req) {
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []services.FieldError{{Field: "body", Message: "No answers submitted"}}})
		return
	}

	res := h.answerService.SubmitBatch(c.Request.Context(), middleware.UserID(c), req)
	switch {
	case len(res.Failed) == 0:
		c.JSON(http.StatusCreated, res)
	case len(res.Saved) == 0:
		c.JSON(http.StatusUnprocessableEntity, res)
	default:
		c.JSON(http.StatusMultiStatus, res)
	}
}

func (h *AnswerHandler) List(c *gin.Context) {
	answers, err := h.answerService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

func (h *AnswerHandler) History(c *gin.Context) {
	history, err := h.answerService.History(c.Request.Context(), middleware.UserID(c), h.now())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *AnswerHandler) Get(c *gin.Context) {
	answer, err := h.answerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *AnswerHandler) ListByUserAndQuestion(c *gin.Context) {
	answers, err := h.answerService.ListByUserAndQuestion(c.Request.Context(), c.Param("userId"), c.Param("questionId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

func (h *AnswerHandler) Update(c *gin.Context) {
	var req services.UpdateAnswerRequest
	if !bindJSON(c, &req) {
		return
	}

	answer, err := h.answerService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *AnswerHandler) Delete(c *gin.Context) {
	answer, err := h.answerService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
