package domain

import (
	"strconv"
	"time"
)

// Category is one node of a bank's category hierarchy.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is a free-form label.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Quiz groups questions for delivery.
type Quiz struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DifficultyLevel is one rung of a bank's difficulty scale.
type DifficultyLevel struct {
	Level        string `json:"level"`
	NumericValue int    `json:"numeric_value"`
	Description  string `json:"description,omitempty"`
}

// TaxonomySet is the classification vocabulary of one question bank. There
// is one per (user, bank). The orchestration path only reads it.
type TaxonomySet struct {
	UserID                int64                        `json:"user_id"`
	QuestionBankID        int64                        `json:"question_bank_id"`
	Categories            [MaxCategoryLevels]*Category `json:"categories"`
	Tags                  []Tag                        `json:"tags"`
	Quizzes               []Quiz                       `json:"quizzes"`
	CurrentDifficulty     *DifficultyLevel             `json:"current_difficulty_level,omitempty"`
	AvailableDifficulties []DifficultyLevel            `json:"available_difficulty_levels"`
	CreatedAt             time.Time                    `json:"created_at"`
	UpdatedAt             time.Time                    `json:"updated_at"`
}

// NewTaxonomySet validates the hierarchy and returns the set.
func NewTaxonomySet(userID, bankID int64, categories [MaxCategoryLevels]*Category, tags []Tag, quizzes []Quiz, current *DifficultyLevel, available []DifficultyLevel, now time.Time) (*TaxonomySet, error) {
	if userID == 0 || bankID == 0 {
		return nil, ErrScopeRequired
	}
	ts := &TaxonomySet{
		UserID:                userID,
		QuestionBankID:        bankID,
		Categories:            categories,
		Tags:                  tags,
		Quizzes:               quizzes,
		CurrentDifficulty:     current,
		AvailableDifficulties: available,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := ts.ValidateHierarchy(); err != nil {
		return nil, err
	}
	return ts, nil
}

// ValidateHierarchy rejects a category level present below an absent one.
func (ts *TaxonomySet) ValidateHierarchy() error {
	return validateLevels(ts.Categories)
}

// AllTaxonomyIDs returns the set of every id a question may reference.
func (ts *TaxonomySet) AllTaxonomyIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range ts.Categories {
		if c != nil {
			ids[c.ID] = struct{}{}
		}
	}
	for _, t := range ts.Tags {
		ids[t.ID] = struct{}{}
	}
	for _, q := range ts.Quizzes {
		ids[strconv.FormatInt(q.ID, 10)] = struct{}{}
	}
	if ts.CurrentDifficulty != nil {
		ids[ts.CurrentDifficulty.Level] = struct{}{}
	}
	for _, d := range ts.AvailableDifficulties {
		ids[d.Level] = struct{}{}
	}
	return ids
}

// ValidateTaxonomyReferences reports whether every id is known to the set.
func (ts *TaxonomySet) ValidateTaxonomyReferences(ids []string) bool {
	return len(ts.FindInvalidTaxonomyReferences(ids)) == 0
}

// FindInvalidTaxonomyReferences returns the ids unknown to the set, in
// input order and without duplicates.
func (ts *TaxonomySet) FindInvalidTaxonomyReferences(ids []string) []string {
	known := ts.AllTaxonomyIDs()
	var invalid []string
	reported := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		if _, ok := reported[id]; ok {
			continue
		}
		reported[id] = struct{}{}
		invalid = append(invalid, id)
	}
	return invalid
}
