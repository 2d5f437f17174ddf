package services

import (
	"fmt"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

// CascadeResult lists what a cascade removed besides the primary document.
type CascadeResult struct {
	Quizzes     []string `json:"quizzes,omitempty"`
	Questions   []string `json:"questions,omitempty"`
	TakeQuizzes []string `json:"takeQuizzes,omitempty"`
	Answers     int64    `json:"answers,omitempty"`
}

func (r *CascadeResult) merge(other CascadeResult) {
	r.Quizzes = append(r.Quizzes, other.Quizzes...)
	r.Questions = append(r.Questions, other.Questions...)
	r.TakeQuizzes = append(r.TakeQuizzes, other.TakeQuizzes...)
	r.Answers += other.Answers
}

// Cascader removes dangling references after a primary delete. Every method
// takes the transaction the primary delete ran in, so a failing step rolls
// the whole delete back.
type Cascader struct {
	log *logger.Logger
}

func NewCascader(log *logger.Logger) *Cascader {
	return &Cascader{log: log.With("service", "Cascader")}
}

// QuizDeleted removes the quiz's questions, its attempts and its join rows.
func (c *Cascader) QuizDeleted(tx *gorm.DB, quizID string) (CascadeResult, error) {
	var res CascadeResult

	if err := tx.Model(&models.QuizQuestion{}).
		Where("quiz_id = ?", quizID).
		Order("position").
		Pluck("question_id", &res.Questions).Error; err != nil {
		return res, fmt.Errorf("list quiz questions: %w", err)
	}
	if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestion{}).Error; err != nil {
		return res, fmt.Errorf("delete quiz question links: %w", err)
	}
	if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuizType{}).Error; err != nil {
		return res, fmt.Errorf("delete quiz type links: %w", err)
	}
	if err := c.deleteQuestions(tx, res.Questions); err != nil {
		return res, err
	}

	if err := tx.Model(&models.TakeQuiz{}).
		Where("quiz_id = ?", quizID).
		Pluck("id", &res.TakeQuizzes).Error; err != nil {
		return res, fmt.Errorf("list quiz attempts: %w", err)
	}
	if len(res.TakeQuizzes) > 0 {
		if err := tx.Where("id IN ?", res.TakeQuizzes).Delete(&models.TakeQuiz{}).Error; err != nil {
			return res, fmt.Errorf("delete quiz attempts: %w", err)
		}
	}

	c.log.Debug("Quiz cascade done", "quiz_id", quizID, "questions", len(res.Questions), "take_quizzes", len(res.TakeQuizzes))
	return res, nil
}

// QuestionDeleted pulls the question from every quiz that lists it.
func (c *Cascader) QuestionDeleted(tx *gorm.DB, questionID string) error {
	if err := tx.Where("question_id = ?", questionID).Delete(&models.QuizQuestion{}).Error; err != nil {
		return fmt.Errorf("pull question %s from quizzes: %w", questionID, err)
	}
	return nil
}

// QuizTypeDeleted pulls the quiz type from every quiz that lists it.
func (c *Cascader) QuizTypeDeleted(tx *gorm.DB, quizTypeID string) error {
	if err := tx.Where("quiz_type_id = ?", quizTypeID).Delete(&models.QuizQuizType{}).Error; err != nil {
		return fmt.Errorf("pull quiz type %s from quizzes: %w", quizTypeID, err)
	}
	return nil
}

// UserDeleted removes everything the user created or took.
func (c *Cascader) UserDeleted(tx *gorm.DB, userID string) (CascadeResult, error) {
	var res CascadeResult

	var quizIDs []string
	if err := tx.Model(&models.Quiz{}).Where("creator_id = ?", userID).Pluck("id", &quizIDs).Error; err != nil {
		return res, fmt.Errorf("list user quizzes: %w", err)
	}
	for _, quizID := range quizIDs {
		sub, err := c.QuizDeleted(tx, quizID)
		if err != nil {
			return res, err
		}
		res.merge(sub)
	}
	if len(quizIDs) > 0 {
		if err := tx.Where("id IN ?", quizIDs).Delete(&models.Quiz{}).Error; err != nil {
			return res, fmt.Errorf("delete user quizzes: %w", err)
		}
		res.Quizzes = quizIDs
	}

	var takeIDs []string
	if err := tx.Model(&models.TakeQuiz{}).Where("take_quiz_user_id = ?", userID).Pluck("id", &takeIDs).Error; err != nil {
		return res, fmt.Errorf("list user attempts: %w", err)
	}
	if len(takeIDs) > 0 {
		if err := tx.Where("id IN ?", takeIDs).Delete(&models.TakeQuiz{}).Error; err != nil {
			return res, fmt.Errorf("delete user attempts: %w", err)
		}
		res.TakeQuizzes = append(res.TakeQuizzes, takeIDs...)
	}

	answers := tx.Where("creator_id = ?", userID).Delete(&models.Answer{})
	if answers.Error != nil {
		return res, fmt.Errorf("delete user answers: %w", answers.Error)
	}
	res.Answers = answers.RowsAffected

	var questionIDs []string
	if err := tx.Model(&models.Question{}).Where("creator_id = ?", userID).Pluck("id", &questionIDs).Error; err != nil {
		return res, fmt.Errorf("list user questions: %w", err)
	}
	if err := c.deleteQuestions(tx, questionIDs); err != nil {
		return res, err
	}
	res.Questions = append(res.Questions, questionIDs...)

	c.log.Debug("User cascade done", "user_id", userID, "quizzes", len(res.Quizzes), "answers", res.Answers)
	return res, nil
}

// deleteQuestions removes the questions and every quiz link pointing at them.
func (c *Cascader) deleteQuestions(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("question_id IN ?", ids).Delete(&models.QuizQuestion{}).Error; err != nil {
		return fmt.Errorf("pull questions from quizzes: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	return nil
}
