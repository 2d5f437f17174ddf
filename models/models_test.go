package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDIsValid(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, IsValidID(id))
	assert.NotEqual(t, id, NewID())
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("61fa13cc56724fc5edc7872e"))
	assert.False(t, IsValidID("61fa13cc56724fc5edc7872"))
	assert.False(t, IsValidID("zzfa13cc56724fc5edc7872e"))
	assert.False(t, IsValidID("MA2k9X2026"))
}

func TestParseQuestionType(t *testing.T) {
	for in, want := range map[string]QuestionType{
		"single selection": SingleSelection,
		"multi choice":     MultiChoice,
		"multiple-choice":  MultiChoice,
		"fill-in-blank":    FillInBlank,
		"QA":               QA,
	} {
		got, ok := ParseQuestionType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseQuestionType("essay")
	assert.False(t, ok)

	assert.True(t, SingleSelection.RequiresSelection())
	assert.True(t, MultiChoice.RequiresSelection())
	assert.False(t, QA.RequiresSelection())
}
