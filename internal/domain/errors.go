// Package domain holds the question-bank aggregates and the invariants they
// enforce. It has no knowledge of storage or transport.
package domain

import "errors"

// Question errors.
var (
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleTooLong         = errors.New("title exceeds 255 characters")
	ErrContentRequired      = errors.New("content is required")
	ErrContentTooLong       = errors.New("content exceeds 4000 characters")
	ErrNegativePoints       = errors.New("points must not be negative")
	ErrUnknownQuestionType  = errors.New("unknown question type")
	ErrSourceIDRequired     = errors.New("source question id is required")
	ErrScopeRequired        = errors.New("user id and question bank id are required")
	ErrTypeDataRequired     = errors.New("type-specific data is required")
	ErrTypeDataMismatch     = errors.New("type-specific data does not match question type")
	ErrInvalidTypeData      = errors.New("type-specific data is not valid")
	ErrInvalidTransition    = errors.New("status transition not permitted")
	ErrQuestionNotPersisted = errors.New("question has no storage identifier")
)

// Type-specific data errors.
var (
	ErrNoOptions          = errors.New("multiple choice question needs at least one option")
	ErrNoCorrectOption    = errors.New("multiple choice question needs at least one correct option")
	ErrDuplicateOptionID  = errors.New("multiple choice option ids must be unique")
	ErrBlankOption        = errors.New("multiple choice options need an id and text")
	ErrSingleAnswerMulti  = errors.New("single-answer multiple choice question has more than one correct option")
	ErrNegativeWordLimit  = errors.New("essay word limits must not be negative")
	ErrWordLimitsInverted = errors.New("essay max words is below min words")
)

// Taxonomy errors.
var (
	ErrCategoryGap        = errors.New("category hierarchy has a gap")
	ErrDifficultyRequired = errors.New("difficulty level is required")
	ErrDuplicateBank      = errors.New("question bank already registered for user")
	ErrBankNotOwned       = errors.New("question bank not owned by user")
	ErrInvalidCategoryLvl = errors.New("category level must be between 1 and 4")
)
