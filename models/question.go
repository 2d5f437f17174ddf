package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleSelection QuestionType = "single selection"
	MultiChoice     QuestionType = "multi choice"
	FillInBlank     QuestionType = "fill-in-blank"
	QA              QuestionType = "QA"
)

// ParseQuestionType accepts the stored names plus the legacy
// "multiple-choice" spelling.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch QuestionType(s) {
	case SingleSelection, MultiChoice, FillInBlank, QA:
		return QuestionType(s), true
	case "multiple-choice":
		return MultiChoice, true
	}
	return "", false
}

// RequiresSelection is true for types whose answers must come from Choices.
func (t QuestionType) RequiresSelection() bool {
	return t == SingleSelection || t == MultiChoice
}

type Question struct {
	Base
	Title         string                      `json:"title"`
	CreatorID     string                      `json:"creator" gorm:"type:char(24);not null;index"`
	Choices       datatypes.JSONSlice[string] `json:"choices"`
	CorrectAnswer datatypes.JSONSlice[string] `json:"correctAnswer"`
	AnswerOptions datatypes.JSONMap           `json:"answerOptions,omitempty"`
	Type          QuestionType                `json:"type" gorm:"not null"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}
