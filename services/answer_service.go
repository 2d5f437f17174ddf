package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

// AnswerItem is one entry of a batch submission, keyed by question id.
type AnswerItem struct {
	UserAnswer []string `json:"userAnswer"`
}

type UpdateAnswerRequest struct {
	UserAnswer []string `json:"userAnswer" binding:"required"`
}

type FailedAnswer struct {
	QuestionID string `json:"questionId"`
	Error      string `json:"error"`
}

type BatchResult struct {
	Saved  []models.Answer `json:"saved"`
	Failed []FailedAnswer  `json:"failed"`
}

type HistoryEntry struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AnswerService struct {
	db    *gorm.DB
	guard *OwnershipGuard
	log   *logger.Logger
}

func NewAnswerService(db *gorm.DB, guard *OwnershipGuard, log *logger.Logger) *AnswerService {
	return &AnswerService{db: db, guard: guard, log: log.With("service", "AnswerService")}
}

// SubmitBatch saves each answer independently. Items that fail validation or
// storage are reported in Failed while the rest are kept.
func (s *AnswerService) SubmitBatch(ctx context.Context, userID string, items map[string]AnswerItem) *BatchResult {
	result := &BatchResult{Saved: []models.Answer{}, Failed: []FailedAnswer{}}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, questionID := range keys {
		answer, err := s.create(ctx, userID, questionID, items[questionID].UserAnswer)
		if err != nil {
			s.log.Debug("Answer rejected", "question_id", questionID, "error", err)
			result.Failed = append(result.Failed, FailedAnswer{QuestionID: questionID, Error: errorText(err)})
			continue
		}
		result.Saved = append(result.Saved, *answer)
	}
	s.log.Info("Answer batch stored", "user_id", userID, "saved", len(result.Saved), "failed", len(result.Failed))
	return result
}

func errorText(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return verr.Fields[0].Message
	}
	return Message(err)
}

func (s *AnswerService) create(ctx context.Context, userID, questionID string, values []string) (*models.Answer, error) {
	q, err := s.question(ctx, s.db, questionID)
	if err != nil {
		return nil, err
	}
	if err := CheckAnswer(q, values); err != nil {
		return nil, err
	}
	answer := models.Answer{QuestionID: questionID, CreatorID: userID, UserAnswer: values}
	if err := s.db.WithContext(ctx).Create(&answer).Error; err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	answer.Question = q
	return &answer, nil
}

func (s *AnswerService) question(ctx context.Context, db *gorm.DB, id string) (*models.Question, error) {
	if !models.IsValidID(id) {
		return nil, ErrInvalidID
	}
	var q models.Question
	err := db.WithContext(ctx).First(&q, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("question not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("find question: %w", err)
	}
	return &q, nil
}

func (s *AnswerService) List(ctx context.Context) ([]models.Answer, error) {
	var answers []models.Answer
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if err := s.attachQuestions(ctx, answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *AnswerService) Get(ctx context.Context, id string) (*models.Answer, error) {
	if !models.IsValidID(id) {
		return nil, ErrInvalidID
	}
	var answer models.Answer
	err := s.db.WithContext(ctx).First(&answer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("no answer with ID: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find answer: %w", err)
	}
	answers := []models.Answer{answer}
	if err := s.attachQuestions(ctx, answers); err != nil {
		return nil, err
	}
	return &answers[0], nil
}

func (s *AnswerService) ListByUserAndQuestion(ctx context.Context, userID, questionID string) ([]models.Answer, error) {
	if !models.IsValidID(userID) || !models.IsValidID(questionID) {
		return nil, ErrInvalidID
	}
	var answers []models.Answer
	err := s.db.WithContext(ctx).
		Where("creator_id = ? AND question_id = ?", userID, questionID).
		Order("created_at DESC").
		Find(&answers).Error
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if err := s.attachQuestions(ctx, answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// Update replaces the submitted values after re-checking them against the
// question.
func (s *AnswerService) Update(ctx context.Context, userID, id string, req *UpdateAnswerRequest) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindAnswer, id, userID); err != nil {
			return err
		}
		if err := tx.First(&answer, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load answer: %w", err)
		}
		q, err := s.question(ctx, tx, answer.QuestionID)
		if err != nil {
			return err
		}
		if err := CheckAnswer(q, req.UserAnswer); err != nil {
			return err
		}
		answer.UserAnswer = req.UserAnswer
		if err := tx.Save(&answer).Error; err != nil {
			return fmt.Errorf("update answer: %w", err)
		}
		answer.Question = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

func (s *AnswerService) Delete(ctx context.Context, userID, id string) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindAnswer, id, userID); err != nil {
			return err
		}
		if err := tx.First(&answer, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load answer: %w", err)
		}
		if err := tx.Delete(&answer).Error; err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// History counts the user's answers per UTC calendar day of the current
// year, oldest day first.
func (s *AnswerService) History(ctx context.Context, userID string, now time.Time) ([]HistoryEntry, error) {
	year := now.UTC().Year()
	// sqlite keeps the writer's offset in its text timestamps, so the SQL
	// range is padded by a day and the exact year check happens below.
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	var stamps []time.Time
	err := s.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("creator_id = ? AND updated_at >= ? AND updated_at < ?", userID, start, end).
		Pluck("updated_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("load answer history: %w", err)
	}

	counts := make(map[string]int)
	for _, t := range stamps {
		t = t.UTC()
		if t.Year() != year {
			continue
		}
		counts[t.Format("2006-01-02")]++
	}
	out := make([]HistoryEntry, 0, len(counts))
	for day, n := range counts {
		out = append(out, HistoryEntry{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *AnswerService) attachQuestions(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	var questions []models.Question
	if err := s.db.WithContext(ctx).Where("id IN ?", dedupe(ids)).Find(&questions).Error; err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[string]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	for i := range answers {
		answers[i].Question = byID[answers[i].QuestionID]
	}
	return nil
}
