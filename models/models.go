package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&QuizType{},
		&Question{},
		&Quiz{},
		&QuizQuestion{},
		&QuizQuizType{},
		&TakeQuiz{},
		&Answer{},
	}
}
