package services

import (
	"context"
	"fmt"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

type ResourceKind string

const (
	KindQuiz     ResourceKind = "quiz"
	KindQuestion ResourceKind = "question"
	KindTakeQuiz ResourceKind = "takeQuiz"
	KindAnswer   ResourceKind = "answer"
)

type ownerColumn struct {
	model  interface{}
	column string
}

// Every ownable resource records its owner in one column of its own table.
var ownerColumns = map[ResourceKind]ownerColumn{
	KindQuiz:     {model: &models.Quiz{}, column: "creator_id"},
	KindQuestion: {model: &models.Question{}, column: "creator_id"},
	KindTakeQuiz: {model: &models.TakeQuiz{}, column: "take_quiz_user_id"},
	KindAnswer:   {model: &models.Answer{}, column: "creator_id"},
}

// OwnershipGuard confirms that the acting user is the recorded creator of a
// resource before it is updated or deleted.
type OwnershipGuard struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOwnershipGuard(db *gorm.DB, log *logger.Logger) *OwnershipGuard {
	return &OwnershipGuard{db: db, log: log.With("service", "OwnershipGuard")}
}

// CheckOwner returns ErrInvalidID, ErrNotFound or ErrForbidden, or nil when
// actingUserID owns the resource. Pass tx to run inside a transaction.
func (g *OwnershipGuard) CheckOwner(ctx context.Context, tx *gorm.DB, kind ResourceKind, resourceID, actingUserID string) error {
	if !models.IsValidID(resourceID) {
		return ErrInvalidID
	}
	col, ok := ownerColumns[kind]
	if !ok {
		return fmt.Errorf("unknown resource kind %q", kind)
	}

	db := g.db
	if tx != nil {
		db = tx
	}

	var owners []string
	err := db.WithContext(ctx).
		Model(col.model).
		Where("id = ?", resourceID).
		Limit(1).
		Pluck(col.column, &owners).Error
	if err != nil {
		return fmt.Errorf("lookup %s owner: %w", kind, err)
	}
	if len(owners) == 0 {
		return notFound("No %s with ID: %s", kind, resourceID)
	}
	if owners[0] != actingUserID {
		g.log.Warn("Rejected mutation by non-creator", "kind", kind, "id", resourceID, "user_id", actingUserID)
		return ErrForbidden
	}
	return nil
}
