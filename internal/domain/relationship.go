package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaxonomyType names the kind of taxonomy element a relationship row links.
type TaxonomyType string

const (
	TaxonomyCategoryLevel1 TaxonomyType = "category_level_1"
	TaxonomyCategoryLevel2 TaxonomyType = "category_level_2"
	TaxonomyCategoryLevel3 TaxonomyType = "category_level_3"
	TaxonomyCategoryLevel4 TaxonomyType = "category_level_4"
	TaxonomyTag            TaxonomyType = "tag"
	TaxonomyQuiz           TaxonomyType = "quiz"
	TaxonomyDifficulty     TaxonomyType = "difficulty_level"
)

var categoryLevelTypes = [MaxCategoryLevels]TaxonomyType{
	TaxonomyCategoryLevel1,
	TaxonomyCategoryLevel2,
	TaxonomyCategoryLevel3,
	TaxonomyCategoryLevel4,
}

// CategoryLevelType returns the relationship type of a 1-based level.
func CategoryLevelType(level int) (TaxonomyType, error) {
	if level < 1 || level > MaxCategoryLevels {
		return "", fmt.Errorf("%w: %d", ErrInvalidCategoryLvl, level)
	}
	return categoryLevelTypes[level-1], nil
}

// IsCategory reports whether t is one of the category levels.
func (t TaxonomyType) IsCategory() bool {
	return strings.HasPrefix(string(t), "category_level_")
}

// TaxonomyRelationship links one question to one taxonomy element. The
// (user, bank, question, type, taxonomy id) tuple is unique.
type TaxonomyRelationship struct {
	ID             uuid.UUID    `json:"id"`
	UserID         int64        `json:"user_id"`
	QuestionBankID int64        `json:"question_bank_id"`
	QuestionID     uuid.UUID    `json:"question_id"`
	TaxonomyType   TaxonomyType `json:"taxonomy_type"`
	TaxonomyID     string       `json:"taxonomy_id"`
	CreatedAt      time.Time    `json:"created_at"`
}

// TupleKey returns the uniqueness key of the row.
func (r TaxonomyRelationship) TupleKey() string {
	return fmt.Sprintf("%d|%d|%s|%s|%s", r.UserID, r.QuestionBankID, r.QuestionID, r.TaxonomyType, r.TaxonomyID)
}

// BuildRelationships derives the full relationship batch of a question: one
// row per present category level in level order, one per tag, one per quiz
// and one for the difficulty level. Repeated elements collapse to one row.
func BuildRelationships(userID, bankID int64, questionID uuid.UUID, t Taxonomy, now time.Time) []TaxonomyRelationship {
	rels := make([]TaxonomyRelationship, 0, MaxCategoryLevels+len(t.Tags)+len(t.Quizzes)+1)
	seen := make(map[string]struct{})
	add := func(tt TaxonomyType, id string) {
		if id == "" {
			return
		}
		r := TaxonomyRelationship{
			UserID:         userID,
			QuestionBankID: bankID,
			QuestionID:     questionID,
			TaxonomyType:   tt,
			TaxonomyID:     id,
			CreatedAt:      now,
		}
		k := r.TupleKey()
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		rels = append(rels, r)
	}

	for i, l := range t.Categories.Levels() {
		if l != nil {
			add(categoryLevelTypes[i], l.ID)
		}
	}
	for _, tag := range t.Tags {
		add(TaxonomyTag, tag.ID)
	}
	for _, q := range t.Quizzes {
		add(TaxonomyQuiz, q.TaxonomyID())
	}
	add(TaxonomyDifficulty, t.Difficulty.Level)
	return rels
}
