package models

import (
	"time"

	"gorm.io/datatypes"
)

type Answer struct {
	Base
	QuestionID string                      `json:"questionId" gorm:"type:char(24);not null;index"`
	CreatorID  string                      `json:"creator" gorm:"type:char(24);not null;index"`
	UserAnswer datatypes.JSONSlice[string] `json:"userAnswer"`
	CreatedAt  time.Time                   `json:"created"`
	UpdatedAt  time.Time                   `json:"updated" gorm:"index"`

	Question *Question `json:"question,omitempty" gorm:"-"`
}
