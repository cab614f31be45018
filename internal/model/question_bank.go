package model

import "github.com/stemsi/qbank-core/internal/domain"

// SeedBankRequest describes a bank and its taxonomy vocabulary to provision.
type SeedBankRequest struct {
	UserID       int64                    `json:"user_id"`
	BankID       int64                    `json:"bank_id"`
	BankName     string                   `json:"bank_name"`
	Categories   []domain.Category        `json:"categories"`
	Tags         []domain.Tag             `json:"tags"`
	Quizzes      []domain.Quiz            `json:"quizzes"`
	Difficulties []domain.DifficultyLevel `json:"difficulties"`
}

// CategoryLevels spreads the ordered category list over the hierarchy
// levels. Extra entries beyond the deepest level are ignored.
func (r SeedBankRequest) CategoryLevels() [domain.MaxCategoryLevels]*domain.Category {
	var levels [domain.MaxCategoryLevels]*domain.Category
	for i := 0; i < len(r.Categories) && i < domain.MaxCategoryLevels; i++ {
		c := r.Categories[i]
		levels[i] = &c
	}
	return levels
}
