package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"party-quiz-service/internal/domain"
)

type quizBank struct {
	Quizzes []domain.Quiz `yaml:"quizzes"`
}

// LoadQuizBank reads a YAML quiz bank and returns a loader over it.
//
//	quizzes:
//	  - id: capitals
//	    title: Capitals
//	    questions:
//	      - text: Capital of France?
//	        options: [Berlin, Paris]
//	        answer: 1
func LoadQuizBank(path string) (*StaticQuizLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quiz bank: %w", err)
	}
	return ParseQuizBank(data)
}

// ParseQuizBank decodes YAML quiz bank content.
func ParseQuizBank(data []byte) (*StaticQuizLoader, error) {
	var bank quizBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse quiz bank: %w", err)
	}
	quizzes := make(map[string]domain.Quiz, len(bank.Quizzes))
	for _, q := range bank.Quizzes {
		if q.ID == "" {
			return nil, fmt.Errorf("parse quiz bank: quiz without id")
		}
		if _, dup := quizzes[q.ID]; dup {
			return nil, fmt.Errorf("parse quiz bank: duplicate quiz id %q", q.ID)
		}
		quizzes[q.ID] = q
	}
	return NewStaticQuizLoader(quizzes), nil
}
