package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
)

const (
	DefaultSize = 20
	MaxSize     = 100
	// MaxPage bounds Skip so page*size cannot overflow.
	MaxPage = 1_000_000
)

// SortRelevance orders by full-text score and switches the text match to
// full-text search.
const SortRelevance = "relevance"

var (
	ErrScopeRequired           = errors.New("user id and question bank id are required")
	ErrUnknownSortField        = errors.New("unknown sort field")
	ErrInvalidSortOrder        = errors.New("sort order must be asc or desc")
	ErrRelevanceRequiresSearch = errors.New("relevance sort requires search text")
	ErrInvalidPage             = errors.New("page out of range")
	ErrInvalidSize             = errors.New("size must be between 1 and 100")
	ErrInvalidFilter           = errors.New("invalid filter value")
)

var sortFields = map[string]string{
	"createdAt": SortFieldCreatedAt,
	"updatedAt": SortFieldUpdatedAt,
	"title":     SortFieldTitle,
	"points":    SortFieldPoints,
	"status":    SortFieldStatus,
	"type":      SortFieldType,
}

// Builder accumulates filter criteria and produces a Pipeline. The first
// invalid input is remembered and reported by Build.
type Builder struct {
	scope      model.TenantScope
	categories []string
	tags       []string
	quizzes    []string
	types      []string
	statuses   []string
	search     string
	sortBy     string
	desc       bool
	page       int
	size       int
	err        error
}

// New starts a builder for scope with the default ordering: newest first,
// first page, DefaultSize rows.
func New(scope model.TenantScope) *Builder {
	return &Builder{scope: scope, sortBy: "createdAt", desc: true, size: DefaultSize}
}

// FromFilter applies every field of f to a new builder.
func FromFilter(scope model.TenantScope, f model.QuestionFilter) *Builder {
	b := New(scope).
		Categories(f.Categories...).
		Tags(f.Tags...).
		Quizzes(f.Quizzes...).
		Types(f.Types...).
		Statuses(f.Statuses...).
		Search(f.SearchText).
		Page(f.Page).
		Size(f.Size)
	if f.SortBy != "" || f.SortOrder != "" {
		b.SortBy(f.SortBy, f.SortOrder)
	}
	return b
}

// Categories requires every id to be linked to the question.
func (b *Builder) Categories(ids ...string) *Builder {
	if len(ids) > domain.MaxCategoryLevels {
		b.fail(fmt.Errorf("%w: at most %d categories", ErrInvalidFilter, domain.MaxCategoryLevels))
		return b
	}
	b.categories = appendNonBlank(b.categories, ids)
	return b
}

// Tags requires at least one of the ids to be linked.
func (b *Builder) Tags(ids ...string) *Builder {
	b.tags = appendNonBlank(b.tags, ids)
	return b
}

// Quizzes requires at least one of the quiz ids to be linked.
func (b *Builder) Quizzes(ids ...int64) *Builder {
	for _, id := range ids {
		if id <= 0 {
			b.fail(fmt.Errorf("%w: quiz id %d", ErrInvalidFilter, id))
			return b
		}
		b.quizzes = append(b.quizzes, strconv.FormatInt(id, 10))
	}
	return b
}

// Types restricts the question type.
func (b *Builder) Types(types ...domain.QuestionType) *Builder {
	for _, t := range types {
		if !t.Valid() {
			b.fail(fmt.Errorf("%w: question type %q", ErrInvalidFilter, t))
			return b
		}
		b.types = append(b.types, string(t))
	}
	return b
}

// Statuses restricts the lifecycle status.
func (b *Builder) Statuses(statuses ...domain.QuestionStatus) *Builder {
	for _, s := range statuses {
		switch s {
		case domain.StatusDraft, domain.StatusPublished, domain.StatusArchived:
			b.statuses = append(b.statuses, string(s))
		default:
			b.fail(fmt.Errorf("%w: status %q", ErrInvalidFilter, s))
			return b
		}
	}
	return b
}

// Search matches text against title and content.
func (b *Builder) Search(text string) *Builder {
	b.search = strings.TrimSpace(text)
	return b
}

// SortBy sets the ordering. An empty order means descending.
func (b *Builder) SortBy(field, order string) *Builder {
	if field == "" {
		field = "createdAt"
	}
	if field != SortRelevance {
		if _, ok := sortFields[field]; !ok {
			b.fail(fmt.Errorf("%w: %q", ErrUnknownSortField, field))
			return b
		}
	}
	switch strings.ToLower(order) {
	case "", model.SortDesc:
		b.desc = true
	case model.SortAsc:
		b.desc = false
	default:
		b.fail(fmt.Errorf("%w: %q", ErrInvalidSortOrder, order))
		return b
	}
	b.sortBy = field
	return b
}

// Page selects the zero-based page.
func (b *Builder) Page(page int) *Builder {
	if page < 0 || page > MaxPage {
		b.fail(fmt.Errorf("%w: %d", ErrInvalidPage, page))
		return b
	}
	b.page = page
	return b
}

// Size sets the page size. Zero selects DefaultSize.
func (b *Builder) Size(size int) *Builder {
	if size == 0 {
		size = DefaultSize
	}
	if size < 1 || size > MaxSize {
		b.fail(fmt.Errorf("%w: %d", ErrInvalidSize, size))
		return b
	}
	b.size = size
	return b
}

// Build validates the accumulated criteria and returns the pipeline.
func (b *Builder) Build() (Pipeline, error) {
	if b.err != nil {
		return Pipeline{}, b.err
	}
	if !b.scope.Valid() {
		return Pipeline{}, ErrScopeRequired
	}

	relevance := b.sortBy == SortRelevance
	if relevance && b.search == "" {
		return Pipeline{}, ErrRelevanceRequiresSearch
	}

	match := MatchStage{UserID: b.scope.UserID, QuestionBankID: b.scope.QuestionBankID}
	add := func(f Field, op Op, values []string) {
		if len(values) > 0 {
			match.Conditions = append(match.Conditions, Condition{Field: f, Op: op, Values: values})
		}
	}
	add(FieldCategory, OpAll, b.categories)
	add(FieldTag, OpAny, b.tags)
	add(FieldQuiz, OpAny, b.quizzes)
	add(FieldType, OpIn, b.types)
	add(FieldStatus, OpIn, b.statuses)
	if b.search != "" {
		if relevance {
			add(FieldSearchText, OpFullText, []string{b.search})
		} else {
			add(FieldText, OpContains, []string{b.search})
		}
	}

	var primary SortKey
	if relevance {
		primary = SortKey{Field: SortFieldScore, Desc: true}
	} else {
		primary = SortKey{Field: sortFields[b.sortBy], Desc: b.desc}
	}

	return Pipeline{
		match: match,
		sort:  SortStage{Keys: []SortKey{primary, {Field: SortFieldID}}},
		skip:  SkipStage{N: b.page * b.size},
		limit: LimitStage{N: b.size},
		page:  b.page,
	}, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func appendNonBlank(dst, ids []string) []string {
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			dst = append(dst, id)
		}
	}
	return dst
}
