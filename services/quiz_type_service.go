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

const popularQuizTypeLimit = 5

type QuizTypeRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

type PopularQuizType struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type QuizTypeService struct {
	db      *gorm.DB
	cascade *Cascader
	log     *logger.Logger
}

func NewQuizTypeService(db *gorm.DB, cascade *Cascader, log *logger.Logger) *QuizTypeService {
	return &QuizTypeService{db: db, cascade: cascade, log: log.With("service", "QuizTypeService")}
}

func (s *QuizTypeService) List(ctx context.Context) ([]models.QuizType, error) {
	var types []models.QuizType
	if err := s.db.WithContext(ctx).Order("name").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("list quiz types: %w", err)
	}
	return types, nil
}

func (s *QuizTypeService) Get(ctx context.Context, id string) (*models.QuizType, error) {
	if !models.IsValidID(id) {
		return nil, ErrInvalidID
	}
	var qt models.QuizType
	err := s.db.WithContext(ctx).First(&qt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("No quiz type with ID: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find quiz type: %w", err)
	}
	return &qt, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "Quiz type name is required")
	}
	return name, nil
}

// nameTaken checks for an exact, case-sensitive match other than exceptID.
func (s *QuizTypeService) nameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.QuizType{}).Where("name = ?", name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check quiz type name: %w", err)
	}
	return count > 0, nil
}

func (s *QuizTypeService) Create(ctx context.Context, req *QuizTypeRequest) (*models.QuizType, error) {
	name, err := cleanName(req.Name)
	if err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict("Quiz type %q already exists", name)
	}

	qt := models.QuizType{Name: name}
	if err := s.db.WithContext(ctx).Create(&qt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("Quiz type %q already exists", name)
		}
		return nil, fmt.Errorf("create quiz type: %w", err)
	}
	s.log.Info("Quiz type created", "id", qt.ID, "name", qt.Name)
	return &qt, nil
}

func (s *QuizTypeService) Rename(ctx context.Context, id string, req *QuizTypeRequest) (*models.QuizType, error) {
	qt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := cleanName(req.Name)
	if err != nil {
		return nil, err
	}
	taken, err := s.nameTaken(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict("Quiz type %q already exists", name)
	}

	if err := s.db.WithContext(ctx).Model(qt).Update("name", name).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("Quiz type %q already exists", name)
		}
		return nil, fmt.Errorf("rename quiz type: %w", err)
	}
	return qt, nil
}

// Delete removes the quiz type and pulls it from every quiz.
func (s *QuizTypeService) Delete(ctx context.Context, id string) (*models.QuizType, error) {
	if !models.IsValidID(id) {
		return nil, ErrInvalidID
	}
	var qt models.QuizType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&qt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("No quiz type with ID: %s", id)
			}
			return fmt.Errorf("find quiz type: %w", err)
		}
		if err := tx.Delete(&qt).Error; err != nil {
			return fmt.Errorf("delete quiz type: %w", err)
		}
		return s.cascade.QuizTypeDeleted(tx, id)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Quiz type deleted", "id", id)
	return &qt, nil
}

// Popular returns the five quiz types used by the most quizzes.
func (s *QuizTypeService) Popular(ctx context.Context) ([]PopularQuizType, error) {
	var out []PopularQuizType
	err := s.db.WithContext(ctx).
		Table("quiz_quiz_types AS qqt").
		Select("qt.id AS id, qt.name AS name, COUNT(*) AS count").
		Joins("JOIN quiz_types qt ON qt.id = qqt.quiz_type_id").
		Group("qt.id, qt.name").
		Order("COUNT(*) DESC, qt.id ASC").
		Limit(popularQuizTypeLimit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate popular quiz types: %w", err)
	}
	return out, nil
}
