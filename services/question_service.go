package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

type CreateQuestionRequest struct {
	Title         string                 `json:"title" binding:"required"`
	Choices       []string               `json:"choices"`
	CorrectAnswer []string               `json:"correctAnswer" binding:"required,min=1"`
	AnswerOptions map[string]interface{} `json:"answerOptions"`
	Type          string                 `json:"type" binding:"required"`
}

// UpdateQuestionRequest is a partial update; nil fields are left unchanged.
type UpdateQuestionRequest struct {
	Title         *string                `json:"title" binding:"omitempty,min=1"`
	Choices       *[]string              `json:"choices"`
	CorrectAnswer *[]string              `json:"correctAnswer" binding:"omitempty,min=1"`
	AnswerOptions map[string]interface{} `json:"answerOptions"`
	Type          *string                `json:"type"`
}

type QuestionService struct {
	db      *gorm.DB
	guard   *OwnershipGuard
	cascade *Cascader
	log     *logger.Logger
}

func NewQuestionService(db *gorm.DB, guard *OwnershipGuard, cascade *Cascader, log *logger.Logger) *QuestionService {
	return &QuestionService{db: db, guard: guard, cascade: cascade, log: log.With("service", "QuestionService")}
}

// validateQuestion enforces choices for selection types and checks that the
// correct answers are themselves valid answers.
func validateQuestion(q *models.Question) error {
	if strings.TrimSpace(q.Title) == "" {
		return invalid("title", "Title is required")
	}
	if q.Type.RequiresSelection() && len(q.Choices) == 0 {
		return invalid("choices", "Answers is required")
	}
	if len(q.CorrectAnswer) == 0 {
		return invalid("correctAnswer", "correctAnswer is required")
	}
	if err := CheckAnswer(q, q.CorrectAnswer); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return invalid("correctAnswer", verr.Fields[0].Message)
		}
		return err
	}
	return nil
}

func parseType(raw string) (models.QuestionType, error) {
	t, ok := models.ParseQuestionType(raw)
	if !ok {
		return "", invalid("type", fmt.Sprintf("Unknown question type %q", raw))
	}
	return t, nil
}

func (s *QuestionService) Create(ctx context.Context, userID string, req *CreateQuestionRequest) (*models.Question, error) {
	typ, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}
	q := models.Question{
		Title:         strings.TrimSpace(req.Title),
		CreatorID:     userID,
		Choices:       req.Choices,
		CorrectAnswer: req.CorrectAnswer,
		AnswerOptions: req.AnswerOptions,
		Type:          typ,
	}
	if err := validateQuestion(&q); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.log.Info("Question created", "id", q.ID, "creator", userID)
	return &q, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (*models.Question, error) {
	if !models.IsValidID(id) {
		return nil, ErrInvalidID
	}
	var q models.Question
	err := s.db.WithContext(ctx).First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Question: %s not found!", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &q, nil
}

func (s *QuestionService) Update(ctx context.Context, userID, id string, req *UpdateQuestionRequest) (*models.Question, error) {
	var q models.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindQuestion, id, userID); err != nil {
			return err
		}
		if err := tx.First(&q, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load question: %w", err)
		}

		if req.Title != nil {
			q.Title = strings.TrimSpace(*req.Title)
		}
		if req.Choices != nil {
			q.Choices = *req.Choices
		}
		if req.CorrectAnswer != nil {
			q.CorrectAnswer = *req.CorrectAnswer
		}
		if req.AnswerOptions != nil {
			q.AnswerOptions = req.AnswerOptions
		}
		if req.Type != nil {
			typ, err := parseType(*req.Type)
			if err != nil {
				return err
			}
			q.Type = typ
		}
		if err := validateQuestion(&q); err != nil {
			return err
		}
		if err := tx.Save(&q).Error; err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Delete removes the question and pulls it from every quiz.
func (s *QuestionService) Delete(ctx context.Context, userID, id string) (*models.Question, error) {
	var q models.Question
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindQuestion, id, userID); err != nil {
			return err
		}
		if err := tx.First(&q, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load question: %w", err)
		}
		if err := tx.Delete(&q).Error; err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		return s.cascade.QuestionDeleted(tx, id)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Question deleted", "id", id, "user_id", userID)
	return &q, nil
}
