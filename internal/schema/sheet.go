package schema

import (
	"fmt"
)

// Difficulty is the declared difficulty of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Sheet is a named collection of practice questions.
type Sheet struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	TotalQuestions int    `json:"total_questions" yaml:"total_questions,omitempty"`
}

// Validate checks if the Sheet has valid field values.
func (s *Sheet) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.TotalQuestions < 0 {
		return fmt.Errorf("total_questions must not be negative (got %d)", s.TotalQuestions)
	}
	return nil
}

// Question is a single practice problem belonging to exactly one sheet.
type Question struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	URL        string     `json:"url,omitempty" yaml:"url,omitempty"`
	Topic      string     `json:"topic" yaml:"topic"`
	SheetID    string     `json:"sheet_id" yaml:"sheet_id,omitempty"`
}

// Validate checks if the Question has valid field values.
func (q *Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("id is required")
	}
	if q.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(q.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(q.Title))
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("invalid difficulty: %q (must be Easy, Medium or Hard)", q.Difficulty)
	}
	if q.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if q.SheetID == "" {
		return fmt.Errorf("sheet_id is required")
	}
	return nil
}

// QuestionWithStatus is a question joined with the current user's status.
// Status is StatusTodo when the user has no record for the question.
type QuestionWithStatus struct {
	Question
	Status Status `json:"status"`
}
