package models

import "time"

const DefaultReferralQuantity = 10000

const (
	DifficultyHard   = "Hard"
	DifficultyMedium = "Medium"
	DifficultyEasy   = "Easy"
)

type ReferralCode struct {
	Code     string `json:"code" gorm:"uniqueIndex"`
	Quantity int    `json:"quantity" gorm:"not null"`
}

type Quiz struct {
	Base
	Name         string       `json:"name" gorm:"not null;index"`
	CreatorID    string       `json:"creator" gorm:"type:char(24);not null;index"`
	Private      bool         `json:"private"`
	Description  string       `json:"description"`
	TimeLimit    *int         `json:"timeLimit,omitempty"`
	Grade        *int         `json:"grade,omitempty"`
	Difficulty   string       `json:"difficulty,omitempty"`
	ReferralCode ReferralCode `json:"referralCode" gorm:"embedded;embeddedPrefix:referral_"`
	Date         time.Time    `json:"date" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updatedAt"`

	// Populated by the quiz service; stored in the join tables below and in
	// take_quizzes.quiz_id.
	Questions []Question `json:"questions" gorm:"-"`
	QuizTypes []QuizType `json:"quizTypes" gorm:"-"`
	Played    []string   `json:"played" gorm:"-"`
}

// QuizQuestion keeps the ordered question list of a quiz.
type QuizQuestion struct {
	QuizID     string `gorm:"primaryKey;type:char(24)"`
	QuestionID string `gorm:"primaryKey;type:char(24);index"`
	Position   int    `gorm:"not null"`
}

type QuizQuizType struct {
	QuizID     string `gorm:"primaryKey;type:char(24)"`
	QuizTypeID string `gorm:"primaryKey;type:char(24);index"`
}
