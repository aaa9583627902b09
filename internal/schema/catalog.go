package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk seed format for sheets and their questions.
type Catalog struct {
	Sheets []CatalogSheet `yaml:"sheets"`
}

// CatalogSheet is a sheet together with its questions.
type CatalogSheet struct {
	Sheet     `yaml:",inline"`
	Questions []Question `yaml:"questions"`
}

// ReadCatalogFile reads and parses a YAML catalog from the given path.
// Returns an error if reading, parsing or validation fails.
func ReadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	cat, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog parses and validates YAML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks every sheet and question, and rejects duplicate IDs.
func (c *Catalog) Validate() error {
	sheetIDs := make(map[string]bool)
	questionIDs := make(map[string]bool)

	sheets, questions := c.Flatten()
	for i := range sheets {
		if err := sheets[i].Validate(); err != nil {
			return fmt.Errorf("sheet %d: %w", i, err)
		}
		if sheetIDs[sheets[i].ID] {
			return fmt.Errorf("duplicate sheet id: %s", sheets[i].ID)
		}
		sheetIDs[sheets[i].ID] = true
	}
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("question %q: %w", questions[i].ID, err)
		}
		if questionIDs[questions[i].ID] {
			return fmt.Errorf("duplicate question id: %s", questions[i].ID)
		}
		questionIDs[questions[i].ID] = true
	}
	return nil
}

// Flatten returns the catalog's sheets and questions as store records.
// Each question's SheetID is set from its enclosing sheet, and a sheet's
// TotalQuestions defaults to its question count when left at zero.
func (c *Catalog) Flatten() ([]Sheet, []Question) {
	sheets := make([]Sheet, 0, len(c.Sheets))
	var questions []Question

	for _, cs := range c.Sheets {
		sheet := cs.Sheet
		if sheet.TotalQuestions == 0 {
			sheet.TotalQuestions = len(cs.Questions)
		}
		sheets = append(sheets, sheet)

		for _, q := range cs.Questions {
			q.SheetID = sheet.ID
			questions = append(questions, q)
		}
	}
	return sheets, questions
}
