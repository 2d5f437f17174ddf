package services

import (
	"quicklearner/models"
)

const (
	msgOnlyOneOption  = "you should only choose one option"
	msgOutOfRange     = "Your answer is not in the range of question options"
	msgChooseAnOption = "you should choose at least one option"
)

// CheckAnswer confirms values is a well-formed answer to q. Selection types
// must pick from the question's choices; free-text types are accepted as is.
func CheckAnswer(q *models.Question, values []string) error {
	switch q.Type {
	case models.SingleSelection:
		if len(values) != 1 {
			return invalid("userAnswer", msgOnlyOneOption)
		}
		if !contains(q.Choices, values[0]) {
			return invalid("userAnswer", msgOutOfRange)
		}
	case models.MultiChoice:
		if len(values) == 0 {
			return invalid("userAnswer", msgChooseAnOption)
		}
		for _, v := range values {
			if !contains(q.Choices, v) {
				return invalid("userAnswer", msgOutOfRange)
			}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
