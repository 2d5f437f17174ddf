package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"quicklearner/testutil"

	"gorm.io/gorm"
)

type notification struct {
	UserID  string
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Notify(userID, eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{UserID: userID, Type: eventType, Payload: payload})
}

func (r *recordingNotifier) events() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification(nil), r.sent...)
}

type testEnv struct {
	ctx       context.Context
	db        *gorm.DB
	notifier  *recordingNotifier
	tokens    *TokenService
	guard     *OwnershipGuard
	cascade   *Cascader
	auth      *AuthService
	users     *UserService
	quizTypes *QuizTypeService
	questions *QuestionService
	quizzes   *QuizService
	takes     *TakeQuizService
	answers   *AnswerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	n := &recordingNotifier{}
	tokens := NewTokenService("test-secret", time.Hour, 24*time.Hour, NewMemoryTokenStore(), log)
	guard := NewOwnershipGuard(db, log)
	cascade := NewCascader(log)
	return &testEnv{
		ctx:       context.Background(),
		db:        db,
		notifier:  n,
		tokens:    tokens,
		guard:     guard,
		cascade:   cascade,
		auth:      NewAuthService(db, tokens, "client-id", nil, log),
		users:     NewUserService(db, tokens, cascade, n, log),
		quizTypes: NewQuizTypeService(db, cascade, log),
		questions: NewQuestionService(db, guard, cascade, log),
		quizzes:   NewQuizService(db, guard, cascade, n, log),
		takes:     NewTakeQuizService(db, guard, n, log),
		answers:   NewAnswerService(db, guard, log),
	}
}

func (e *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
