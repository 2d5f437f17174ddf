package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"quicklearner/logger"
	"quicklearner/models"

	"gorm.io/gorm"
)

const (
	maxQuizTypes        = 5
	referralRandomChars = 4
	referralCharset     = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	referralAttempts    = 5
	msgQuizTypeCount    = "Quiz types' quantities should between one to five"
)

type CreateQuizRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Private     bool     `json:"private"`
	TimeLimit   *int     `json:"timeLimit" binding:"omitempty,min=1"`
	Grade       *int     `json:"grade" binding:"omitempty,min=0"`
	Difficulty  string   `json:"difficulty" binding:"omitempty,oneof=Hard Medium Easy"`
	Questions   []string `json:"questions"`
	QuizTypes   []string `json:"quizTypes" binding:"required,min=1,max=5"`
}

// UpdateQuizRequest is a partial update; nil fields are left unchanged and
// non-nil lists replace the stored ones.
type UpdateQuizRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=1"`
	Description *string   `json:"description"`
	Private     *bool     `json:"private"`
	TimeLimit   *int      `json:"timeLimit" binding:"omitempty,min=1"`
	Grade       *int      `json:"grade" binding:"omitempty,min=0"`
	Difficulty  *string   `json:"difficulty" binding:"omitempty,oneof=Hard Medium Easy"`
	Questions   *[]string `json:"questions"`
	QuizTypes   *[]string `json:"quizTypes" binding:"omitempty,min=1,max=5"`
}

type DeleteQuizResult struct {
	Quiz *models.Quiz `json:"deletedQuiz"`
	CascadeResult
}

type QuizService struct {
	db       *gorm.DB
	guard    *OwnershipGuard
	cascade  *Cascader
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewQuizService(db *gorm.DB, guard *OwnershipGuard, cascade *Cascader, notifier Notifier, log *logger.Logger) *QuizService {
	return &QuizService{
		db:       db,
		guard:    guard,
		cascade:  cascade,
		notifier: notifier,
		log:      log.With("service", "QuizService"),
		now:      time.Now,
	}
}

// List returns public quizzes plus the caller's own private ones, newest first.
func (s *QuizService) List(ctx context.Context, userID string) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Where("private = ? OR creator_id = ?", false, userID).
		Order("date DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	if err := populateQuizzes(s.db.WithContext(ctx), quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (s *QuizService) ListByUser(ctx context.Context, userID string) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.WithContext(ctx).
		Where("creator_id = ?", userID).
		Order("date DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, fmt.Errorf("list user quizzes: %w", err)
	}
	if err := populateQuizzes(s.db.WithContext(ctx), quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// GetByIDOrCode looks a quiz up by id when the key is a well-formed id and by
// referral code otherwise. Private quizzes are only visible to their creator
// by id; the referral code itself grants access.
func (s *QuizService) GetByIDOrCode(ctx context.Context, userID, key string) (*models.Quiz, error) {
	db := s.db.WithContext(ctx)
	var quiz models.Quiz
	var err error
	byID := models.IsValidID(key)
	if byID {
		err = db.First(&quiz, "id = ?", key).Error
	} else {
		err = db.First(&quiz, "referral_code = ?", key).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Quiz not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	if byID && quiz.Private && quiz.CreatorID != userID {
		return nil, notFound("Quiz not found")
	}

	quizzes := []models.Quiz{quiz}
	if err := populateQuizzes(db, quizzes); err != nil {
		return nil, err
	}
	return &quizzes[0], nil
}

func (s *QuizService) Create(ctx context.Context, userID string, req *CreateQuizRequest) (*models.Quiz, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "Name is required")
	}

	quiz := models.Quiz{
		Name:        name,
		CreatorID:   userID,
		Private:     req.Private,
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		Grade:       req.Grade,
		Difficulty:  req.Difficulty,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		typeIDs, err := checkQuizTypes(tx, req.QuizTypes)
		if err != nil {
			return err
		}
		questionIDs, err := checkQuestions(tx, req.Questions, userID)
		if err != nil {
			return err
		}
		code, err := s.uniqueReferralCode(tx, name)
		if err != nil {
			return err
		}
		quiz.ReferralCode = models.ReferralCode{Code: code, Quantity: models.DefaultReferralQuantity}

		if err := tx.Create(&quiz).Error; err != nil {
			return fmt.Errorf("create quiz: %w", err)
		}
		if err := setQuestions(tx, quiz.ID, questionIDs); err != nil {
			return err
		}
		if err := setQuizTypes(tx, quiz.ID, typeIDs); err != nil {
			return err
		}
		return populateQuiz(tx, &quiz)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Quiz created", "id", quiz.ID, "creator", userID, "referral_code", quiz.ReferralCode.Code)
	return &quiz, nil
}

func (s *QuizService) Update(ctx context.Context, userID, id string, req *UpdateQuizRequest) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindQuiz, id, userID); err != nil {
			return err
		}
		if err := tx.First(&quiz, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalid("name", "Name is required")
			}
			updates["name"] = name
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Private != nil {
			updates["private"] = *req.Private
		}
		if req.TimeLimit != nil {
			updates["time_limit"] = *req.TimeLimit
		}
		if req.Grade != nil {
			updates["grade"] = *req.Grade
		}
		if req.Difficulty != nil {
			updates["difficulty"] = *req.Difficulty
		}

		if req.QuizTypes != nil {
			typeIDs, err := checkQuizTypes(tx, *req.QuizTypes)
			if err != nil {
				return err
			}
			if err := setQuizTypes(tx, id, typeIDs); err != nil {
				return err
			}
		}
		if req.Questions != nil {
			questionIDs, err := checkQuestions(tx, *req.Questions, quiz.CreatorID)
			if err != nil {
				return err
			}
			if err := setQuestions(tx, id, questionIDs); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&quiz).Updates(updates).Error; err != nil {
				return fmt.Errorf("update quiz: %w", err)
			}
		}
		if err := tx.First(&quiz, "id = ?", id).Error; err != nil {
			return fmt.Errorf("reload quiz: %w", err)
		}
		return populateQuiz(tx, &quiz)
	})
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// Delete removes the quiz, its questions and every attempt at it. Users who
// took the quiz are notified once the transaction commits.
func (s *QuizService) Delete(ctx context.Context, userID, id string) (*DeleteQuizResult, error) {
	var (
		quiz   models.Quiz
		result DeleteQuizResult
		takers map[string][]string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindQuiz, id, userID); err != nil {
			return err
		}
		if err := tx.First(&quiz, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}
		var err error
		if takers, err = takersOf(tx, []string{id}, userID); err != nil {
			return err
		}
		if err := tx.Delete(&quiz).Error; err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		res, err := s.cascade.QuizDeleted(tx, id)
		if err != nil {
			return err
		}
		result.CascadeResult = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, uid := range takers[id] {
		s.notifier.Notify(uid, EventQuizDeleted, map[string]string{"quizId": id, "name": quiz.Name})
	}
	result.Quiz = &quiz
	s.log.Info("Quiz deleted", "id", id, "questions", len(result.Questions), "take_quizzes", len(result.TakeQuizzes))
	return &result, nil
}

// AddQuestion appends a question to the quiz unless it is already listed.
func (s *QuizService) AddQuestion(ctx context.Context, userID, quizID, questionID string) (*models.Quiz, error) {
	if !models.IsValidID(questionID) {
		return nil, ErrInvalidID
	}
	var quiz models.Quiz
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindQuiz, quizID, userID); err != nil {
			return err
		}
		if err := tx.First(&quiz, "id = ?", quizID).Error; err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}
		if _, err := checkQuestions(tx, []string{questionID}, quiz.CreatorID); err != nil {
			return err
		}

		var linked int64
		if err := tx.Model(&models.QuizQuestion{}).
			Where("quiz_id = ? AND question_id = ?", quizID, questionID).
			Count(&linked).Error; err != nil {
			return fmt.Errorf("check quiz question: %w", err)
		}
		if linked == 0 {
			var next int
			if err := tx.Model(&models.QuizQuestion{}).
				Where("quiz_id = ?", quizID).
				Select("COALESCE(MAX(position) + 1, 0)").
				Scan(&next).Error; err != nil {
				return fmt.Errorf("next question position: %w", err)
			}
			link := models.QuizQuestion{QuizID: quizID, QuestionID: questionID, Position: next}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("add question to quiz: %w", err)
			}
		}
		return populateQuiz(tx, &quiz)
	})
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// AddQuizType tags the quiz with a quiz type unless already tagged. A quiz
// carries at most five quiz types.
func (s *QuizService) AddQuizType(ctx context.Context, userID, quizID, quizTypeID string) (*models.Quiz, error) {
	if !models.IsValidID(quizTypeID) {
		return nil, ErrInvalidID
	}
	var quiz models.Quiz
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guard.CheckOwner(ctx, tx, KindQuiz, quizID, userID); err != nil {
			return err
		}
		if err := tx.First(&quiz, "id = ?", quizID).Error; err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}

		var exists int64
		if err := tx.Model(&models.QuizType{}).Where("id = ?", quizTypeID).Count(&exists).Error; err != nil {
			return fmt.Errorf("find quiz type: %w", err)
		}
		if exists == 0 {
			return notFound("quizType not found")
		}

		var current []string
		if err := tx.Model(&models.QuizQuizType{}).Where("quiz_id = ?", quizID).Pluck("quiz_type_id", &current).Error; err != nil {
			return fmt.Errorf("list quiz types of quiz: %w", err)
		}
		if !contains(current, quizTypeID) {
			if len(current) >= maxQuizTypes {
				return invalid("quizTypes", msgQuizTypeCount)
			}
			if err := tx.Create(&models.QuizQuizType{QuizID: quizID, QuizTypeID: quizTypeID}).Error; err != nil {
				return fmt.Errorf("add quiz type to quiz: %w", err)
			}
		}
		return populateQuiz(tx, &quiz)
	})
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// uniqueReferralCode retries on the rare collision with an existing code.
func (s *QuizService) uniqueReferralCode(tx *gorm.DB, name string) (string, error) {
	for i := 0; i < referralAttempts; i++ {
		code, err := GenerateReferralCode(name, s.now().Year())
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Quiz{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", conflict("could not generate a unique referral code")
}

// GenerateReferralCode builds the uppercase initials of the quiz name, four
// random alphanumerics and the year, e.g. "MA" + "x7Q2" + "2026".
func GenerateReferralCode(name string, year int) (string, error) {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(r))
	}
	limit := big.NewInt(int64(len(referralCharset)))
	for i := 0; i < referralRandomChars; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		b.WriteByte(referralCharset[n.Int64()])
	}
	b.WriteString(strconv.Itoa(year))
	return b.String(), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func checkIDs(field string, ids []string) error {
	for _, id := range ids {
		if !models.IsValidID(id) {
			return invalid(field, "Id not valid")
		}
	}
	return nil
}

func checkQuizTypes(tx *gorm.DB, ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) < 1 || len(ids) > maxQuizTypes {
		return nil, invalid("quizTypes", msgQuizTypeCount)
	}
	if err := checkIDs("quizTypes", ids); err != nil {
		return nil, err
	}
	var count int64
	if err := tx.Model(&models.QuizType{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check quiz types: %w", err)
	}
	if int(count) != len(ids) {
		return nil, notFound("quizType not found")
	}
	return ids, nil
}

// checkQuestions confirms every question exists and belongs to creatorID, so
// the quiz cascade never removes another user's question.
func checkQuestions(tx *gorm.DB, ids []string, creatorID string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return ids, nil
	}
	if err := checkIDs("questions", ids); err != nil {
		return nil, err
	}
	var owners []struct {
		ID        string
		CreatorID string
	}
	if err := tx.Model(&models.Question{}).Select("id", "creator_id").Where("id IN ?", ids).Scan(&owners).Error; err != nil {
		return nil, fmt.Errorf("check questions: %w", err)
	}
	if len(owners) != len(ids) {
		return nil, notFound("question not found")
	}
	for _, o := range owners {
		if o.CreatorID != creatorID {
			return nil, ErrForbidden
		}
	}
	return ids, nil
}

func setQuestions(tx *gorm.DB, quizID string, ids []string) error {
	if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuestion{}).Error; err != nil {
		return fmt.Errorf("clear quiz questions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	links := make([]models.QuizQuestion, len(ids))
	for i, id := range ids {
		links[i] = models.QuizQuestion{QuizID: quizID, QuestionID: id, Position: i}
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("link quiz questions: %w", err)
	}
	return nil
}

func setQuizTypes(tx *gorm.DB, quizID string, ids []string) error {
	if err := tx.Where("quiz_id = ?", quizID).Delete(&models.QuizQuizType{}).Error; err != nil {
		return fmt.Errorf("clear quiz types: %w", err)
	}
	links := make([]models.QuizQuizType, len(ids))
	for i, id := range ids {
		links[i] = models.QuizQuizType{QuizID: quizID, QuizTypeID: id}
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("link quiz types: %w", err)
	}
	return nil
}

func populateQuiz(db *gorm.DB, quiz *models.Quiz) error {
	quizzes := []models.Quiz{*quiz}
	if err := populateQuizzes(db, quizzes); err != nil {
		return err
	}
	*quiz = quizzes[0]
	return nil
}

// populateQuizzes fills Questions, QuizTypes and Played for a page of quizzes
// with one query per relation.
func populateQuizzes(db *gorm.DB, quizzes []models.Quiz) error {
	if len(quizzes) == 0 {
		return nil
	}
	ids := make([]string, len(quizzes))
	byID := make(map[string]*models.Quiz, len(quizzes))
	for i := range quizzes {
		ids[i] = quizzes[i].ID
		byID[quizzes[i].ID] = &quizzes[i]
		quizzes[i].Questions = []models.Question{}
		quizzes[i].QuizTypes = []models.QuizType{}
		quizzes[i].Played = []string{}
	}

	var qLinks []models.QuizQuestion
	if err := db.Where("quiz_id IN ?", ids).Order("quiz_id, position").Find(&qLinks).Error; err != nil {
		return fmt.Errorf("load quiz questions: %w", err)
	}
	if len(qLinks) > 0 {
		questionIDs := make([]string, 0, len(qLinks))
		for _, l := range qLinks {
			questionIDs = append(questionIDs, l.QuestionID)
		}
		var questions []models.Question
		if err := db.Where("id IN ?", dedupe(questionIDs)).Find(&questions).Error; err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		qByID := make(map[string]models.Question, len(questions))
		for _, q := range questions {
			qByID[q.ID] = q
		}
		for _, l := range qLinks {
			if q, ok := qByID[l.QuestionID]; ok {
				byID[l.QuizID].Questions = append(byID[l.QuizID].Questions, q)
			}
		}
	}

	var tLinks []models.QuizQuizType
	if err := db.Where("quiz_id IN ?", ids).Find(&tLinks).Error; err != nil {
		return fmt.Errorf("load quiz type links: %w", err)
	}
	if len(tLinks) > 0 {
		typeIDs := make([]string, 0, len(tLinks))
		for _, l := range tLinks {
			typeIDs = append(typeIDs, l.QuizTypeID)
		}
		var types []models.QuizType
		if err := db.Where("id IN ?", dedupe(typeIDs)).Order("name").Find(&types).Error; err != nil {
			return fmt.Errorf("load quiz types: %w", err)
		}
		tByID := make(map[string]models.QuizType, len(types))
		for _, t := range types {
			tByID[t.ID] = t
		}
		for _, l := range tLinks {
			if t, ok := tByID[l.QuizTypeID]; ok {
				byID[l.QuizID].QuizTypes = append(byID[l.QuizID].QuizTypes, t)
			}
		}
	}

	var played []struct {
		ID     string
		QuizID string
	}
	if err := db.Model(&models.TakeQuiz{}).Select("id", "quiz_id").Where("quiz_id IN ?", ids).Order("start_time").Scan(&played).Error; err != nil {
		return fmt.Errorf("load played: %w", err)
	}
	for _, p := range played {
		byID[p.QuizID].Played = append(byID[p.QuizID].Played, p.ID)
	}
	return nil
}
