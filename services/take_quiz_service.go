package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

type CreateTakeQuizRequest struct {
	Status       bool                   `json:"status"`
	StartTime    time.Time              `json:"startTime"`
	SubmitTime   time.Time              `json:"submitTime"`
	Questions    []string               `json:"questions"`
	UserAnswer   map[string]interface{} `json:"userAnswer"`
	ReferralCode string                 `json:"referralCode"`
}

type TakeQuizService struct {
	db       *gorm.DB
	guard    *OwnershipGuard
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewTakeQuizService(db *gorm.DB, guard *OwnershipGuard, notifier Notifier, log *logger.Logger) *TakeQuizService {
	return &TakeQuizService{
		db:       db,
		guard:    guard,
		notifier: notifier,
		log:      log.With("service", "TakeQuizService"),
		now:      time.Now,
	}
}

// Create records an attempt at a quiz. A non-creator taking a private quiz
// must present its referral code, and each such attempt uses up one unit of
// the code's quantity.
func (s *TakeQuizService) Create(ctx context.Context, userID, quizID string, req *CreateTakeQuizRequest) (*models.TakeQuiz, error) {
	if !models.IsValidID(quizID) {
		return nil, ErrInvalidID
	}
	var (
		quiz models.Quiz
		tq   models.TakeQuiz
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&quiz, "id = ?", quizID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("quiz not found")
			}
			return fmt.Errorf("find quiz: %w", err)
		}

		if quiz.Private && quiz.CreatorID != userID {
			if req.ReferralCode == "" || req.ReferralCode != quiz.ReferralCode.Code {
				return forbidden("A valid referral code is required for this quiz")
			}
			res := tx.Model(&models.Quiz{}).
				Where("id = ? AND referral_quantity > 0", quizID).
				Update("referral_quantity", gorm.Expr("referral_quantity - 1"))
			if res.Error != nil {
				return fmt.Errorf("consume referral code: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return forbidden("Referral code %s has been used up", quiz.ReferralCode.Code)
			}
		}

		questions := req.Questions
		if len(questions) == 0 {
			if err := tx.Model(&models.QuizQuestion{}).
				Where("quiz_id = ?", quizID).
				Order("position").
				Pluck("question_id", &questions).Error; err != nil {
				return fmt.Errorf("snapshot quiz questions: %w", err)
			}
		}

		now := s.now()
		tq = models.TakeQuiz{
			Status:         req.Status,
			StartTime:      req.StartTime,
			SubmitTime:     req.SubmitTime,
			TakeQuizUserID: userID,
			QuizID:         quizID,
			Questions:      questions,
			UserAnswer:     req.UserAnswer,
		}
		if tq.StartTime.IsZero() {
			tq.StartTime = now
		}
		if tq.SubmitTime.IsZero() {
			tq.SubmitTime = now
		}
		if err := tx.Create(&tq).Error; err != nil {
			return fmt.Errorf("create take quiz: %w", err)
		}
		if err := tx.First(&quiz, "id = ?", quizID).Error; err != nil {
			return fmt.Errorf("reload quiz: %w", err)
		}
		return populateQuiz(tx, &quiz)
	})
	if err != nil {
		return nil, err
	}

	tq.Quiz = &quiz
	if quiz.CreatorID != userID {
		s.notifier.Notify(quiz.CreatorID, EventQuizPlayed, map[string]string{
			"quizId":     quiz.ID,
			"takeQuizId": tq.ID,
			"userId":     userID,
		})
	}
	s.log.Info("Quiz taken", "quiz_id", quizID, "take_quiz_id", tq.ID, "user_id", userID)
	return &tq, nil
}

func (s *TakeQuizService) List(ctx context.Context) ([]models.TakeQuiz, error) {
	var out []models.TakeQuiz
	if err := s.db.WithContext(ctx).Order("submit_time DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list take quizzes: %w", err)
	}
	if err := s.attachQuizzes(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns the user's attempts, most recently submitted first.
func (s *TakeQuizService) ListByUser(ctx context.Context, userID string) ([]models.TakeQuiz, error) {
	var out []models.TakeQuiz
	err := s.db.WithContext(ctx).
		Where("take_quiz_user_id = ?", userID).
		Order("submit_time DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list user take quizzes: %w", err)
	}
	if err := s.attachQuizzes(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TakeQuizService) Get(ctx context.Context, id string) (*models.TakeQuiz, error) {
	if !models.IsValidID(id) {
		return nil, ErrInvalidID
	}
	var tq models.TakeQuiz
	err := s.db.WithContext(ctx).First(&tq, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("No takeQuiz with ID: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find take quiz: %w", err)
	}
	return &tq, nil
}

// Delete removes an attempt. Only the user who took it may delete it.
func (s *TakeQuizService) Delete(ctx context.Context, userID, id string) (*models.TakeQuiz, error) {
	var tq models.TakeQuiz
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindTakeQuiz, id, userID); err != nil {
			return err
		}
		if err := tx.First(&tq, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load take quiz: %w", err)
		}
		if err := tx.Delete(&tq).Error; err != nil {
			return fmt.Errorf("delete take quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tq, nil
}

// attachQuizzes sets the Quiz of each attempt without loading its relations.
func (s *TakeQuizService) attachQuizzes(ctx context.Context, attempts []models.TakeQuiz) error {
	if len(attempts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.QuizID)
	}
	var quizzes []models.Quiz
	if err := s.db.WithContext(ctx).Where("id IN ?", dedupe(ids)).Find(&quizzes).Error; err != nil {
		return fmt.Errorf("load quizzes: %w", err)
	}
	byID := make(map[string]*models.Quiz, len(quizzes))
	for i := range quizzes {
		byID[quizzes[i].ID] = &quizzes[i]
	}
	for i := range attempts {
		attempts[i].Quiz = byID[attempts[i].QuizID]
	}
	return nil
}
