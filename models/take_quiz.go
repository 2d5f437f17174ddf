package models

import (
	"time"

	"gorm.io/datatypes"
)

type TakeQuiz struct {
	Base
	Status         bool                        `json:"status"`
	StartTime      time.Time                   `json:"startTime"`
	SubmitTime     time.Time                   `json:"submitTime"`
	TakeQuizUserID string                      `json:"takeQuizUser" gorm:"type:char(24);not null;index"`
	QuizID         string                      `json:"quizId" gorm:"type:char(24);not null;index"`
	Questions      datatypes.JSONSlice[string] `json:"questions"`
	UserAnswer     datatypes.JSONMap           `json:"userAnswer"`

	Quiz *Quiz `json:"quiz,omitempty" gorm:"-"`
}
