package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"proctored-quiz-service/internal/domain"
)

// LoadQuizFile reads and validates a YAML quiz definition.
func LoadQuizFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}
