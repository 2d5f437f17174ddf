package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quicklearner/logger"
	"quicklearner/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	Password    string `json:"password" binding:"required,min=8,max=16"`
}

type ChangeUsernameRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=16"`
}

type UserService struct {
	db       *gorm.DB
	tokens   *TokenService
	cascade  *Cascader
	notifier Notifier
	log      *logger.Logger
}

func NewUserService(db *gorm.DB, tokens *TokenService, cascade *Cascader, notifier Notifier, log *logger.Logger) *UserService {
	return &UserService{
		db:       db,
		tokens:   tokens,
		cascade:  cascade,
		notifier: notifier,
		log:      log.With("service", "UserService"),
	}
}

func (s *UserService) find(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Can not find user with id %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) (*models.User, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)) != nil {
		return nil, forbidden("Please input correct old password.")
	}
	return s.setPassword(ctx, user, req.Password)
}

func (s *UserService) ChangeUsername(ctx context.Context, userID string, req *ChangeUsernameRequest) (*models.User, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "Username is required")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("update username: %w", err)
	}
	return user, nil
}

// ResetPassword redeems a reset-password token. The new password may not be
// the account's email address.
func (s *UserService) ResetPassword(ctx context.Context, token string, req *ResetPasswordRequest) (*models.User, error) {
	claims, err := s.tokens.Verify(token, PurposeResetPassword)
	if err != nil {
		return nil, err
	}
	user, err := s.find(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(req.Password, user.Email) {
		return nil, invalid("password", "Password can not be same as your email address")
	}
	// The token is spent inside the transaction, after the new password is
	// written; a failed write leaves it usable.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := writePassword(tx, user, req.Password); err != nil {
			return err
		}
		_, err := s.tokens.Consume(ctx, token, PurposeResetPassword)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Password reset", "user_id", user.ID)
	return user, nil
}

func (s *UserService) setPassword(ctx context.Context, user *models.User, password string) (*models.User, error) {
	if err := writePassword(s.db.WithContext(ctx), user, password); err != nil {
		return nil, err
	}
	s.log.Info("Password updated", "user_id", user.ID)
	return user, nil
}

func writePassword(db *gorm.DB, user *models.User, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := db.Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

type DeleteUserResult struct {
	Email string `json:"email"`
	CascadeResult
}

// Delete removes the user together with their quizzes, attempts, answers
// and questions in one transaction.
func (s *UserService) Delete(ctx context.Context, userID string) (*DeleteUserResult, error) {
	var (
		result DeleteUserResult
		takers map[string][]string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("User not found!")
			}
			return fmt.Errorf("find user: %w", err)
		}
		result.Email = user.Email

		var quizIDs []string
		if err := tx.Model(&models.Quiz{}).Where("creator_id = ?", userID).Pluck("id", &quizIDs).Error; err != nil {
			return fmt.Errorf("list user quizzes: %w", err)
		}
		var err error
		if takers, err = takersOf(tx, quizIDs, userID); err != nil {
			return err
		}

		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		res, err := s.cascade.UserDeleted(tx, userID)
		if err != nil {
			return err
		}
		result.CascadeResult = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	for quizID, users := range takers {
		for _, uid := range users {
			s.notifier.Notify(uid, EventQuizDeleted, map[string]string{"quizId": quizID})
		}
	}
	s.log.Info("User deleted", "user_id", userID, "quizzes", len(result.Quizzes), "answers", result.Answers)
	return &result, nil
}

// takersOf maps each quiz to the distinct users other than skip who took it.
func takersOf(tx *gorm.DB, quizIDs []string, skip string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(quizIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		QuizID         string
		TakeQuizUserID string
	}
	err := tx.Model(&models.TakeQuiz{}).
		Distinct("quiz_id", "take_quiz_user_id").
		Where("quiz_id IN ? AND take_quiz_user_id <> ?", quizIDs, skip).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list quiz takers: %w", err)
	}
	for _, r := range rows {
		out[r.QuizID] = append(out[r.QuizID], r.TakeQuizUserID)
	}
	return out, nil
}
