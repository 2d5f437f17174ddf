package services

import (
	"errors"
	"testing"

	"quicklearner/models"

	"github.com/stretchr/testify/assert"
)

func TestCheckAnswerSingleSelection(t *testing.T) {
	q := &models.Question{
		Type:    models.SingleSelection,
		Choices: []string{"365", "360", "370", "366"},
	}

	tests := []struct {
		name    string
		values  []string
		wantMsg string
	}{
		{name: "one valid choice", values: []string{"365"}},
		{name: "two choices", values: []string{"365", "366"}, wantMsg: msgOnlyOneOption},
		{name: "no choice", values: nil, wantMsg: msgOnlyOneOption},
		{name: "not in choices", values: []string{"999"}, wantMsg: msgOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAnswer(q, tt.values)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.True(t, errors.As(err, &verr)) {
				assert.Equal(t, tt.wantMsg, verr.Fields[0].Message)
			}
		})
	}
}

func TestCheckAnswerMultiChoice(t *testing.T) {
	q := &models.Question{
		Type:    models.MultiChoice,
		Choices: []string{"red", "green", "blue"},
	}

	assert.NoError(t, CheckAnswer(q, []string{"red", "blue"}))
	assert.Error(t, CheckAnswer(q, []string{"red", "purple"}))
	assert.Error(t, CheckAnswer(q, []string{}))
}

func TestCheckAnswerFreeText(t *testing.T) {
	for _, typ := range []models.QuestionType{models.FillInBlank, models.QA} {
		q := &models.Question{Type: typ}
		assert.NoError(t, CheckAnswer(q, []string{"anything at all"}))
		assert.NoError(t, CheckAnswer(q, []string{"a", "b"}))
	}
}
