package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quicklearner/handlers"
	"quicklearner/middleware"
	"quicklearner/models"
	"quicklearner/services"
	"quicklearner/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const frontendURL = "http://localhost:3000"

type captureMailer struct {
	mu   sync.Mutex
	sent []services.Email
}

func (m *captureMailer) Send(_ context.Context, msg services.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last(t *testing.T) services.Email {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *services.TokenService
	hub    *services.Hub
	mailer *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := testutil.Logger(t)
	db := testutil.DB(t)
	mailer := &captureMailer{}
	hub := services.NewHub(log)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	t.Cleanup(cancel)

	tokens := services.NewTokenService("test-secret", time.Hour, time.Hour, services.NewMemoryTokenStore(), log)
	guard := services.NewOwnershipGuard(db, log)
	cascade := services.NewCascader(log)

	h := &Handlers{
		Auth:         handlers.NewAuthHandler(services.NewAuthService(db, tokens, "client-id", nil, log), log),
		Email:        handlers.NewEmailHandler(services.NewEmailService(db, tokens, mailer, frontendURL, log), log),
		User:         handlers.NewUserHandler(services.NewUserService(db, tokens, cascade, hub, log), log),
		QuizType:     handlers.NewQuizTypeHandler(services.NewQuizTypeService(db, cascade, log), log),
		Question:     handlers.NewQuestionHandler(services.NewQuestionService(db, guard, cascade, log), log),
		Quiz:         handlers.NewQuizHandler(services.NewQuizService(db, guard, cascade, hub, log), log),
		TakeQuiz:     handlers.NewTakeQuizHandler(services.NewTakeQuizService(db, guard, hub, log), log),
		Answer:       handlers.NewAnswerHandler(services.NewAnswerService(db, guard, log), log),
		Notification: handlers.NewNotificationHandler(hub, tokens, []string{frontendURL}, log),
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(log))
	SetupRoutes(router, h, middleware.NewAuthMiddleware(log, tokens), "/api/v1")

	return &testServer{router: router, db: db, tokens: tokens, hub: hub, mailer: mailer}
}

func (s *testServer) login(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := testutil.SeedUser(t, context.Background(), s.db, email)
	token, err := s.tokens.Issue(user.ID, services.PurposeAccess)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

type errorBody struct {
	Error  string                `json:"error"`
	Errors []services.FieldError `json:"errors"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	s := newTestServer(t)
	user, _ := s.login(t, "alice@example.com")

	w := s.do(t, http.MethodGet, "/api/v1/quiz", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/quiz", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	verify, err := s.tokens.Issue(user.ID, services.PurposeVerifyEmail)
	require.NoError(t, err)
	w = s.do(t, http.MethodGet, "/api/v1/auth/me", verify, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "email tokens are not access tokens")
}

func TestQuizTypeCRUD(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "alice@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/quizType", token, map[string]string{"name": "math"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.QuizType
	decode(t, w, &created)
	assert.Equal(t, "math", created.Name)

	w = s.do(t, http.MethodPost, "/api/v1/quizType", token, map[string]string{"name": "math"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/quizType/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/quizType/"+created.ID, token, map[string]string{"name": "algebra"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/quizType", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.QuizType
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "algebra", list[0].Name)

	w = s.do(t, http.MethodDelete, "/api/v1/quizType/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/quizType/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/quizType/123", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body errorBody
	decode(t, w, &body)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, services.FieldError{Field: "id", Message: "Id not valid"}, body.Errors[0])
}

func TestPatchQuizOnlyByCreator(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login(t, "alice@example.com")
	_, bob := s.login(t, "bob@example.com")
	math := testutil.SeedQuizType(t, context.Background(), s.db, "math")

	w := s.do(t, http.MethodPost, "/api/v1/quiz", alice, map[string]interface{}{
		"name":      "Math Quiz",
		"quizTypes": []string{math.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var quiz models.Quiz
	decode(t, w, &quiz)

	w = s.do(t, http.MethodPatch, "/api/v1/quiz/"+quiz.ID, bob, map[string]string{"name": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "Only creator can edit this resource", body.Error)

	w = s.do(t, http.MethodGet, "/api/v1/quiz/"+quiz.ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var unchanged models.Quiz
	decode(t, w, &unchanged)
	assert.Equal(t, "Math Quiz", unchanged.Name)

	w = s.do(t, http.MethodPatch, "/api/v1/quiz/"+quiz.ID, alice, map[string]string{"name": "Algebra Quiz"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Quiz
	decode(t, w, &updated)
	assert.Equal(t, "Algebra Quiz", updated.Name)

	w = s.do(t, http.MethodGet, "/api/v1/quiz/"+quiz.ReferralCode.Code, bob, nil)
	assert.Equal(t, http.StatusOK, w.Code, "lookup by referral code")

	w = s.do(t, http.MethodDelete, "/api/v1/quiz/"+quiz.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidationErrorsUseJSONFieldNames(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "nope", "password": "short"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body errorBody
	decode(t, w, &body)
	fields := map[string]string{}
	for _, f := range body.Errors {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "must be a valid email", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])

	w = s.do(t, http.MethodPost, "/api/v1/auth/signin", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSignUpVerifyAndSignInOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "new@example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "new@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/email/signup", "", map[string]string{"recipientEmail": "new@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	html := s.mailer.last(t).HTML
	prefix := frontendURL + "/email-verified/"
	i := strings.Index(html, prefix)
	require.GreaterOrEqual(t, i, 0)
	rest := html[i+len(prefix):]
	verify := rest[:strings.IndexByte(rest, '"')]

	w = s.do(t, http.MethodPost, "/api/v1/auth/signup-verify?token="+verify, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "new@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var auth services.AuthResponse
	decode(t, w, &auth)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decode(t, w, &me)
	assert.Equal(t, "new@example.com", me.Email)
	assert.True(t, me.Verified)
}

func TestAnswerBatchStatus(t *testing.T) {
	s := newTestServer(t)
	alice, token := s.login(t, "alice@example.com")
	q := testutil.SeedQuestion(t, context.Background(), s.db, alice.ID)
	missing := models.NewID()

	w := s.do(t, http.MethodPost, "/api/v1/answer", token, map[string]interface{}{
		q.ID: map[string][]string{"userAnswer": {"365"}},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/answer", token, map[string]interface{}{
		q.ID:    map[string][]string{"userAnswer": {"365"}},
		missing: map[string][]string{"userAnswer": {"365"}},
	})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())
	var partial services.BatchResult
	decode(t, w, &partial)
	assert.Len(t, partial.Saved, 1)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, missing, partial.Failed[0].QuestionID)

	w = s.do(t, http.MethodPost, "/api/v1/answer", token, map[string]interface{}{
		q.ID: map[string][]string{"userAnswer": {"365", "366"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/answer/users/"+alice.ID+"/questions/"+q.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var answers []models.Answer
	decode(t, w, &answers)
	assert.Len(t, answers, 2)

	w = s.do(t, http.MethodGet, "/api/v1/answer/answer-history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []services.HistoryEntry
	decode(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Count)
}

func TestDeleteUserOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice, token := s.login(t, "alice@example.com")
	ctx := context.Background()
	math := testutil.SeedQuizType(t, ctx, s.db, "math")
	q := testutil.SeedQuestion(t, ctx, s.db, alice.ID)
	testutil.SeedQuiz(t, ctx, s.db, alice.ID, []string{math.ID}, []string{q.ID})

	w := s.do(t, http.MethodDelete, "/api/v1/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var n int64
	require.NoError(t, s.db.Model(&models.Quiz{}).Where("creator_id = ?", alice.ID).Count(&n).Error)
	assert.Zero(t, n)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuizPlayedNotification(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	alice, aliceToken := s.login(t, "alice@example.com")
	_, bobToken := s.login(t, "bob@example.com")
	math := testutil.SeedQuizType(t, ctx, s.db, "math")
	quiz := testutil.SeedQuiz(t, ctx, s.db, alice.ID, []string{math.ID}, nil)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications?token=" + aliceToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.ConnectedClients(alice.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	w := s.do(t, http.MethodPost, "/api/v1/takeQuiz/"+quiz.ID, bobToken, map[string]interface{}{"status": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg services.Notification
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, services.EventQuizPlayed, msg.Type)
}

func TestNotificationsRejectMissingToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/ws/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuestionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.login(t, "alice@example.com")
	_, bob := s.login(t, "bob@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/question", alice, map[string]interface{}{
		"title":         "How many days in a year?",
		"type":          "single selection",
		"choices":       []string{"365", "360"},
		"correctAnswer": []string{"999"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, "correct answer must be a choice")

	w = s.do(t, http.MethodPost, "/api/v1/question", alice, map[string]interface{}{
		"title":         "How many days in a year?",
		"type":          "single selection",
		"choices":       []string{"365", "360"},
		"correctAnswer": []string{"365"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var q models.Question
	decode(t, w, &q)

	w = s.do(t, http.MethodPatch, "/api/v1/question/"+q.ID, bob, map[string]string{"title": "Changed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/question/"+q.ID, alice, map[string]string{"title": "Days per year?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/api/v1/question/"+q.ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/question/"+q.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
