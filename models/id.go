package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// Base gives every document a 24-character hex identifier generated on insert.
type Base struct {
	ID string `json:"id" gorm:"primaryKey;type:char(24)"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether s is a well-formed 24-character hex identifier.
func IsValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}
