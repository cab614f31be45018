package domain

import (
	"fmt"
	"strconv"
)

// MaxCategoryLevels is the depth of the category hierarchy.
const MaxCategoryLevels = 4

// CategoryRef points at one category node of a bank's hierarchy.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Categories is a question's position in the category hierarchy. Levels
// are optional but contiguous: a level requires all levels above it.
type Categories struct {
	Level1 *CategoryRef `json:"level_1,omitempty"`
	Level2 *CategoryRef `json:"level_2,omitempty"`
	Level3 *CategoryRef `json:"level_3,omitempty"`
	Level4 *CategoryRef `json:"level_4,omitempty"`
}

// Levels returns the four levels in order; absent levels are nil.
func (c Categories) Levels() [MaxCategoryLevels]*CategoryRef {
	return [MaxCategoryLevels]*CategoryRef{c.Level1, c.Level2, c.Level3, c.Level4}
}

// ValidateHierarchy rejects a present level below an absent one.
func (c Categories) ValidateHierarchy() error {
	return validateLevels(c.Levels())
}

func validateLevels[T any](levels [MaxCategoryLevels]*T) error {
	gap := 0
	for i, l := range levels {
		if l == nil {
			if gap == 0 {
				gap = i + 1
			}
			continue
		}
		if gap != 0 {
			return fmt.Errorf("%w: level %d present without level %d", ErrCategoryGap, i+1, gap)
		}
	}
	return nil
}

// TagRef references a tag.
type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// QuizRef references a quiz. Quiz ids are numeric and are compared as
// decimal strings against the taxonomy set.
type QuizRef struct {
	QuizID int64  `json:"quiz_id"`
	Name   string `json:"name,omitempty"`
}

// TaxonomyID returns the quiz id in taxonomy-reference form.
func (q QuizRef) TaxonomyID() string {
	return strconv.FormatInt(q.QuizID, 10)
}

// DifficultyRef references a difficulty level by its level string.
type DifficultyRef struct {
	Level        string `json:"level"`
	NumericValue int    `json:"numeric_value,omitempty"`
}

// Taxonomy is everything a question is classified by.
type Taxonomy struct {
	Categories Categories    `json:"categories"`
	Tags       []TagRef      `json:"tags"`
	Quizzes    []QuizRef     `json:"quizzes"`
	Difficulty DifficultyRef `json:"difficulty_level"`
}

// Validate requires contiguous category levels and a difficulty level.
func (t Taxonomy) Validate() error {
	if err := t.Categories.ValidateHierarchy(); err != nil {
		return err
	}
	if t.Difficulty.Level == "" {
		return ErrDifficultyRequired
	}
	return nil
}

// ReferencedIDs returns every taxonomy id the classification points at:
// category ids per present level, tag ids, quiz ids as strings and the
// difficulty level. Duplicates are dropped, first occurrence wins.
func (t Taxonomy) ReferencedIDs() []string {
	ids := make([]string, 0, MaxCategoryLevels+len(t.Tags)+len(t.Quizzes)+1)
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, l := range t.Categories.Levels() {
		if l != nil {
			add(l.ID)
		}
	}
	for _, tag := range t.Tags {
		add(tag.ID)
	}
	for _, q := range t.Quizzes {
		add(q.TaxonomyID())
	}
	add(t.Difficulty.Level)
	return ids
}
