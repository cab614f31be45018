// Package query turns a question filter into an ordered, storage-neutral
// pipeline of match, sort, skip and limit stages.
package query

import "fmt"

// Field names a filterable attribute of a question.
type Field string

const (
	FieldCategory   Field = "category"
	FieldTag        Field = "tag"
	FieldQuiz       Field = "quiz"
	FieldType       Field = "question_type"
	FieldStatus     Field = "status"
	FieldText       Field = "text"
	FieldSearchText Field = "search_vector"
)

// Op is the comparison a Condition applies.
type Op string

const (
	// OpAll matches when every value is linked to the question.
	OpAll Op = "all"
	// OpAny matches when at least one value is linked to the question.
	OpAny Op = "any"
	// OpIn matches when the column equals one of the values.
	OpIn Op = "in"
	// OpContains is a case-insensitive substring match on title or content.
	OpContains Op = "contains"
	// OpFullText is a full-text match that also produces a relevance score.
	OpFullText Op = "fulltext"
)

// Condition is one predicate of a match stage.
type Condition struct {
	Field  Field
	Op     Op
	Values []string
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Values)
}

// Sort fields. SortFieldScore is only valid after a full-text match.
const (
	SortFieldCreatedAt = "created_at"
	SortFieldUpdatedAt = "updated_at"
	SortFieldTitle     = "title"
	SortFieldPoints    = "points"
	SortFieldStatus    = "status"
	SortFieldType      = "question_type"
	SortFieldScore     = "score"
	SortFieldID        = "_id"
)

// SortKey orders by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// StageKind identifies a pipeline stage.
type StageKind string

const (
	StageMatch StageKind = "match"
	StageSort  StageKind = "sort"
	StageSkip  StageKind = "skip"
	StageLimit StageKind = "limit"
)

// Stage is one step of a Pipeline.
type Stage interface {
	Kind() StageKind
}

// MatchStage selects questions of one tenant scope that satisfy every
// condition.
type MatchStage struct {
	UserID         int64
	QuestionBankID int64
	Conditions     []Condition
}

// SortStage orders the matched questions by Keys in priority order.
type SortStage struct {
	Keys []SortKey
}

// SkipStage drops the first N results.
type SkipStage struct {
	N int
}

// LimitStage keeps at most N results.
type LimitStage struct {
	N int
}

func (MatchStage) Kind() StageKind { return StageMatch }
func (SortStage) Kind() StageKind  { return StageSort }
func (SkipStage) Kind() StageKind  { return StageSkip }
func (LimitStage) Kind() StageKind { return StageLimit }

// FullText returns the full-text condition of the stage, if any.
func (m MatchStage) FullText() (Condition, bool) {
	for _, c := range m.Conditions {
		if c.Op == OpFullText {
			return c, true
		}
	}
	return Condition{}, false
}

// Pipeline is always match, sort, skip, limit in that order.
type Pipeline struct {
	match MatchStage
	sort  SortStage
	skip  SkipStage
	limit LimitStage
	page  int
}

// Stages returns the four stages in execution order.
func (p Pipeline) Stages() []Stage {
	return []Stage{p.match, p.sort, p.skip, p.limit}
}

func (p Pipeline) Match() MatchStage { return p.match }
func (p Pipeline) Sort() SortStage   { return p.sort }
func (p Pipeline) Skip() SkipStage   { return p.skip }
func (p Pipeline) Limit() LimitStage { return p.limit }

// Page returns the zero-based page number the pipeline was built for.
func (p Pipeline) Page() int { return p.page }
