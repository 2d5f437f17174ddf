package models

type QuizType struct {
	Base
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}
