package services

import (
	"errors"
	"testing"

	"quicklearner/models"
	"quicklearner/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOwner(t *testing.T) {
	env := newTestEnv(t)
	alice := testutil.SeedUser(t, env.ctx, env.db, "alice@example.com")
	bob := testutil.SeedUser(t, env.ctx, env.db, "bob@example.com")
	qt := testutil.SeedQuizType(t, env.ctx, env.db, "math")
	question := testutil.SeedQuestion(t, env.ctx, env.db, alice.ID)
	quiz := testutil.SeedQuiz(t, env.ctx, env.db, alice.ID, []string{qt.ID}, []string{question.ID})
	take := testutil.SeedTakeQuiz(t, env.ctx, env.db, bob.ID, quiz.ID)

	tests := []struct {
		name    string
		kind    ResourceKind
		id      string
		actor   string
		wantErr error
	}{
		{name: "quiz owner", kind: KindQuiz, id: quiz.ID, actor: alice.ID},
		{name: "quiz non-owner", kind: KindQuiz, id: quiz.ID, actor: bob.ID, wantErr: ErrForbidden},
		{name: "question owner", kind: KindQuestion, id: question.ID, actor: alice.ID},
		{name: "question non-owner", kind: KindQuestion, id: question.ID, actor: bob.ID, wantErr: ErrForbidden},
		{name: "take quiz taker", kind: KindTakeQuiz, id: take.ID, actor: bob.ID},
		{name: "take quiz quiz creator", kind: KindTakeQuiz, id: take.ID, actor: alice.ID, wantErr: ErrForbidden},
		{name: "missing quiz", kind: KindQuiz, id: models.NewID(), actor: alice.ID, wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.guard.CheckOwner(env.ctx, nil, tt.kind, tt.id, tt.actor)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCheckOwnerRejectsMalformedID(t *testing.T) {
	env := newTestEnv(t)
	err := env.guard.CheckOwner(env.ctx, nil, KindQuiz, "not-an-id", models.NewID())

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Id not valid", verr.Fields[0].Message)
}

func TestForbiddenMessage(t *testing.T) {
	assert.Equal(t, "Only creator can edit this resource", Message(ErrForbidden))
	assert.Equal(t, "No quiz with ID: x", Message(notFound("No quiz with ID: %s", "x")))
}
