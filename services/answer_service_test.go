package services

import (
	"errors"
	"testing"
	"time"

	"quicklearner/models"
	"quicklearner/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBatchIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.SeedUser(t, env.ctx, env.db, "alice@example.com")
	good := testutil.SeedQuestion(t, env.ctx, env.db, alice.ID)
	bad := testutil.SeedQuestion(t, env.ctx, env.db, alice.ID)
	missing := models.NewID()

	res := env.answers.SubmitBatch(env.ctx, alice.ID, map[string]AnswerItem{
		good.ID:    {UserAnswer: []string{"365"}},
		bad.ID:     {UserAnswer: []string{"365", "366"}},
		missing:    {UserAnswer: []string{"365"}},
		"not-an-id": {UserAnswer: []string{"365"}},
	})

	require.Len(t, res.Saved, 1)
	assert.Equal(t, good.ID, res.Saved[0].QuestionID)
	assert.Equal(t, alice.ID, res.Saved[0].CreatorID)

	failed := map[string]string{}
	for _, f := range res.Failed {
		failed[f.QuestionID] = f.Error
	}
	assert.Len(t, failed, 3)
	assert.Equal(t, msgOnlyOneOption, failed[bad.ID])
	assert.Equal(t, "question not exist", failed[missing])
	assert.Equal(t, "Id not valid", failed["not-an-id"])

	assert.EqualValues(t, 1, env.count(t, &models.Answer{}, "creator_id = ?", alice.ID))
}

func TestUpdateAnswerRevalidates(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.SeedUser(t, env.ctx, env.db, "alice@example.com")
	bob := testutil.SeedUser(t, env.ctx, env.db, "bob@example.com")
	q := testutil.SeedQuestion(t, env.ctx, env.db, alice.ID)
	a := testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"360"}, time.Now().UTC())

	_, err := env.answers.Update(env.ctx, bob.ID, a.ID, &UpdateAnswerRequest{UserAnswer: []string{"365"}})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = env.answers.Update(env.ctx, alice.ID, a.ID, &UpdateAnswerRequest{UserAnswer: []string{"999"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, msgOutOfRange, verr.Fields[0].Message)

	updated, err := env.answers.Update(env.ctx, alice.ID, a.ID, &UpdateAnswerRequest{UserAnswer: []string{"365"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"365"}, []string(updated.UserAnswer))

	got, err := env.answers.ListByUserAndQuestion(env.ctx, alice.ID, q.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"365"}, []string(got[0].UserAnswer))
	require.NotNil(t, got[0].Question)
	assert.Equal(t, q.Title, got[0].Question.Title)

	_, err = env.answers.Delete(env.ctx, alice.ID, a.ID)
	require.NoError(t, err)
	_, err = env.answers.Get(env.ctx, a.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAnswerHistory(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.SeedUser(t, env.ctx, env.db, "alice@example.com")
	bob := testutil.SeedUser(t, env.ctx, env.db, "bob@example.com")
	q := testutil.SeedQuestion(t, env.ctx, env.db, alice.ID)

	at := func(month time.Month, day, hour int) time.Time {
		return time.Date(2026, month, day, hour, 0, 0, 0, time.UTC)
	}
	testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"365"}, at(3, 2, 9))
	testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"365"}, at(3, 2, 18))
	testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"365"}, at(1, 15, 12))
	testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"365"}, time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC))
	testutil.SeedAnswer(t, env.ctx, env.db, bob.ID, q.ID, []string{"365"}, at(3, 2, 10))

	history, err := env.answers.History(env.ctx, alice.ID, at(10, 17, 12))
	require.NoError(t, err)
	assert.Equal(t, []HistoryEntry{
		{Date: "2026-01-15", Count: 1},
		{Date: "2026-03-02", Count: 2},
	}, history)

	empty, err := env.answers.History(env.ctx, models.NewID(), at(10, 17, 12))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAnswerHistoryWithOffsetTimestamps(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.SeedUser(t, env.ctx, env.db, "alice@example.com")
	q := testutil.SeedQuestion(t, env.ctx, env.db, alice.ID)

	pacific := time.FixedZone("PST", -8*60*60)
	// 2026-01-01 04:00 UTC, written as 2025-12-31 20:00-08:00.
	testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"365"}, time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC).In(pacific))
	// 2025-12-31 23:00 UTC, written as 2026-01-01 08:00+09:00.
	testutil.SeedAnswer(t, env.ctx, env.db, alice.ID, q.ID, []string{"365"}, time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC).In(time.FixedZone("JST", 9*60*60)))

	history, err := env.answers.History(env.ctx, alice.ID, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []HistoryEntry{{Date: "2026-01-01", Count: 1}}, history)
}
