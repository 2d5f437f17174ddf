package testutil

import (
	"context"
	"testing"
	"time"

	"quicklearner/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plain-text password of every seeded user.
const DefaultPassword = "password123"

func SeedUser(tb testing.TB, ctx context.Context, db *gorm.DB, email string) *models.User {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Name:     models.DefaultUserName,
		Email:    email,
		Password: string(hash),
		Verified: true,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedQuizType(tb testing.TB, ctx context.Context, db *gorm.DB, name string) *models.QuizType {
	tb.Helper()
	qt := &models.QuizType{Name: name}
	if err := db.WithContext(ctx).Create(qt).Error; err != nil {
		tb.Fatalf("seed quiz type: %v", err)
	}
	return qt
}

// SeedQuestion creates a single-selection question about the days in a year.
func SeedQuestion(tb testing.TB, ctx context.Context, db *gorm.DB, creatorID string) *models.Question {
	tb.Helper()
	q := &models.Question{
		Title:         "How many days in a year?",
		CreatorID:     creatorID,
		Choices:       []string{"365", "360", "370", "366"},
		CorrectAnswer: []string{"365"},
		Type:          models.SingleSelection,
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

// SeedQuiz creates a quiz with its question and quiz type links.
func SeedQuiz(tb testing.TB, ctx context.Context, db *gorm.DB, creatorID string, quizTypeIDs, questionIDs []string) *models.Quiz {
	tb.Helper()
	quiz := &models.Quiz{
		Name:         "Math Quiz",
		CreatorID:    creatorID,
		Description:  "seeded",
		ReferralCode: models.ReferralCode{Code: "MQ" + models.NewID()[18:] + "2026", Quantity: models.DefaultReferralQuantity},
	}
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	for i, id := range questionIDs {
		link := &models.QuizQuestion{QuizID: quiz.ID, QuestionID: id, Position: i}
		if err := db.WithContext(ctx).Create(link).Error; err != nil {
			tb.Fatalf("seed quiz question: %v", err)
		}
	}
	for _, id := range quizTypeIDs {
		link := &models.QuizQuizType{QuizID: quiz.ID, QuizTypeID: id}
		if err := db.WithContext(ctx).Create(link).Error; err != nil {
			tb.Fatalf("seed quiz type link: %v", err)
		}
	}
	return quiz
}

func SeedTakeQuiz(tb testing.TB, ctx context.Context, db *gorm.DB, userID, quizID string) *models.TakeQuiz {
	tb.Helper()
	now := time.Now().UTC()
	tq := &models.TakeQuiz{
		Status:         true,
		StartTime:      now.Add(-time.Minute),
		SubmitTime:     now,
		TakeQuizUserID: userID,
		QuizID:         quizID,
	}
	if err := db.WithContext(ctx).Create(tq).Error; err != nil {
		tb.Fatalf("seed take quiz: %v", err)
	}
	return tq
}

// SeedAnswer stores an answer last updated at the given time.
func SeedAnswer(tb testing.TB, ctx context.Context, db *gorm.DB, userID, questionID string, values []string, updated time.Time) *models.Answer {
	tb.Helper()
	a := &models.Answer{
		QuestionID: questionID,
		CreatorID:  userID,
		UserAnswer: values,
		CreatedAt:  updated,
		UpdatedAt:  updated,
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed answer: %v", err)
	}
	return a
}
