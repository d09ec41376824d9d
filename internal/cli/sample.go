package cli

import "proctored-quiz-service/internal/domain"

const sampleQuizID = "c-basics"

// sampleQuizzes is served when no quiz file is configured, and seeded into postgres when missing.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		sampleQuizID: {
			ID:    sampleQuizID,
			Title: "C Programming Basics",
			Questions: []domain.Question{
				{
					ID:      "Q1",
					Prompt:  "Which data type is used to store a single character in C?",
					Options: []string{"char", "int", "float", "double"},
					Answer:  "char",
				},
				{
					ID:      "Q2",
					Prompt:  "What is the output of 5 / 2 in C if both operands are integers?",
					Options: []string{"2.5", "2", "3", "Error"},
					Answer:  "2",
				},
				{
					ID:      "Q3",
					Prompt:  "Which loop is used when the number of iterations is known?",
					Options: []string{"while", "do-while", "for", "if"},
					Answer:  "for",
				},
				{
					ID:      "Q4",
					Prompt:  "What is the format specifier for printing an integer in C?",
					Options: []string{"%c", "%d", "%f", "%s"},
					Answer:  "%d",
				},
				{
					ID:      "Q5",
					Prompt:  "Which operator is used for incrementing a variable by 1 in C?",
					Options: []string{"+", "++", "--", "="},
					Answer:  "++",
				},
			},
		},
	}
}
