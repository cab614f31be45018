package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxTitleLength   = 255
	MaxContentLength = 4000
)

// QuestionType is the kind of answer a question expects.
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "MCQ"
	QuestionTypeEssay     QuestionType = "ESSAY"
	QuestionTypeTrueFalse QuestionType = "TRUE_FALSE"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeEssay, QuestionTypeTrueFalse:
		return true
	}
	return false
}

// QuestionStatus is the lifecycle state of a question.
type QuestionStatus string

const (
	StatusDraft     QuestionStatus = "draft"
	StatusPublished QuestionStatus = "published"
	StatusArchived  QuestionStatus = "archived"
)

// BusinessKey is the tenant-scoped natural identifier used for idempotent
// upsert. It is distinct from the storage identifier.
type BusinessKey struct {
	UserID           int64  `json:"user_id"`
	QuestionBankID   int64  `json:"question_bank_id"`
	SourceQuestionID string `json:"source_question_id"`
}

func (k BusinessKey) String() string {
	return fmt.Sprintf("%d/%d/%s", k.UserID, k.QuestionBankID, k.SourceQuestionID)
}

// Validate checks that every part of the key is present.
func (k BusinessKey) Validate() error {
	if k.UserID == 0 || k.QuestionBankID == 0 {
		return ErrScopeRequired
	}
	if strings.TrimSpace(k.SourceQuestionID) == "" {
		return ErrSourceIDRequired
	}
	return nil
}

// NewQuestionParams are the inputs of NewQuestion.
type NewQuestionParams struct {
	Key      BusinessKey
	Title    string
	Content  string
	Points   float64
	TypeData TypeData
}

// QuestionState is the persisted shape of a question, used by repositories
// to save and rehydrate the aggregate.
type QuestionState struct {
	ID          uuid.UUID
	Key         BusinessKey
	Type        QuestionType
	Title       string
	Content     string
	Points      float64
	Status      QuestionStatus
	TypeData    TypeData
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
	ArchivedAt  *time.Time
}

// Question is the question aggregate.
type Question struct {
	s QuestionState
}

// NewQuestion validates the inputs and returns a draft question together
// with its creation record. CreatedAt and UpdatedAt are both set to now.
func NewQuestion(p NewQuestionParams, now time.Time) (*Question, ChangeRecord, error) {
	if err := p.Key.Validate(); err != nil {
		return nil, ChangeRecord{}, err
	}
	title, content, err := normalizeBasicContent(p.Title, p.Content, p.Points)
	if err != nil {
		return nil, ChangeRecord{}, err
	}
	if p.TypeData == nil {
		return nil, ChangeRecord{}, ErrTypeDataRequired
	}
	if !p.TypeData.QuestionType().Valid() {
		return nil, ChangeRecord{}, ErrUnknownQuestionType
	}

	q := &Question{s: QuestionState{
		Key:       p.Key,
		Type:      p.TypeData.QuestionType(),
		Title:     title,
		Content:   content,
		Points:    p.Points,
		Status:    StatusDraft,
		TypeData:  p.TypeData,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	return q, q.record(ChangeCreated, now, "type", "title", "content", "points", "type_data", "status"), nil
}

// RehydrateQuestion rebuilds a question loaded from storage. No invariant
// is re-checked: stored data was valid when written.
func RehydrateQuestion(s QuestionState) *Question {
	return &Question{s: s}
}

// State returns a copy of the question's persisted shape.
func (q *Question) State() QuestionState { return q.s }

func (q *Question) ID() uuid.UUID           { return q.s.ID }
func (q *Question) Key() BusinessKey        { return q.s.Key }
func (q *Question) Type() QuestionType      { return q.s.Type }
func (q *Question) Title() string           { return q.s.Title }
func (q *Question) Content() string         { return q.s.Content }
func (q *Question) Points() float64         { return q.s.Points }
func (q *Question) Status() QuestionStatus  { return q.s.Status }
func (q *Question) TypeData() TypeData      { return q.s.TypeData }
func (q *Question) CreatedAt() time.Time    { return q.s.CreatedAt }
func (q *Question) UpdatedAt() time.Time    { return q.s.UpdatedAt }
func (q *Question) PublishedAt() *time.Time { return q.s.PublishedAt }
func (q *Question) ArchivedAt() *time.Time  { return q.s.ArchivedAt }

// IsNew reports whether the question has not been modified since creation.
func (q *Question) IsNew() bool {
	return q.s.CreatedAt.Equal(q.s.UpdatedAt)
}

// HasValidTypeSpecificData reports whether the single payload is present,
// matches the question type and is structurally valid.
func (q *Question) HasValidTypeSpecificData() bool {
	d := q.s.TypeData
	return d != nil && d.QuestionType() == q.s.Type && d.Validate() == nil
}

// UpdateBasicContent trims and re-validates title, content and points. The
// returned record lists exactly the fields whose value changed.
func (q *Question) UpdateBasicContent(title, content string, points float64, now time.Time) (ChangeRecord, error) {
	title, content, err := normalizeBasicContent(title, content, points)
	if err != nil {
		return ChangeRecord{}, err
	}

	var changed []string
	if title != q.s.Title {
		changed = append(changed, "title")
	}
	if content != q.s.Content {
		changed = append(changed, "content")
	}
	if points != q.s.Points {
		changed = append(changed, "points")
	}

	q.s.Title = title
	q.s.Content = content
	q.s.Points = points
	q.touch(now)
	return q.record(ChangeContentUpdated, now, changed...), nil
}

// ReplaceTypeData swaps the type-specific payload. The question type
// follows the payload, so the single-payload invariant always holds.
func (q *Question) ReplaceTypeData(data TypeData, now time.Time) (ChangeRecord, error) {
	if data == nil {
		return ChangeRecord{}, ErrTypeDataRequired
	}
	if !data.QuestionType().Valid() {
		return ChangeRecord{}, ErrUnknownQuestionType
	}

	var changed []string
	if data.QuestionType() != q.s.Type {
		changed = append(changed, "type")
	}
	if !typeDataEqual(data, q.s.TypeData) {
		changed = append(changed, "type_data")
	}

	q.s.Type = data.QuestionType()
	q.s.TypeData = data
	q.touch(now)
	return q.record(ChangeTypeDataReplaced, now, changed...), nil
}

// Publish moves a draft with valid type data to published.
func (q *Question) Publish(now time.Time) (ChangeRecord, error) {
	if q.s.Status != StatusDraft {
		return ChangeRecord{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.s.Status, StatusPublished)
	}
	if !q.HasValidTypeSpecificData() {
		return ChangeRecord{}, ErrInvalidTypeData
	}
	q.s.Status = StatusPublished
	q.s.PublishedAt = &now
	q.touch(now)
	return q.record(ChangePublished, now, "status", "published_at"), nil
}

// Archive moves a published question to archived. Archival is the only
// way a question leaves circulation.
func (q *Question) Archive(now time.Time) (ChangeRecord, error) {
	if q.s.Status != StatusPublished {
		return ChangeRecord{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.s.Status, StatusArchived)
	}
	q.s.Status = StatusArchived
	q.s.ArchivedAt = &now
	q.touch(now)
	return q.record(ChangeArchived, now, "status", "archived_at"), nil
}

func (q *Question) touch(now time.Time) {
	// UpdatedAt stays strictly after CreatedAt once mutated; IsNew relies on it.
	if !now.After(q.s.CreatedAt) {
		now = q.s.CreatedAt.Add(time.Microsecond)
	}
	q.s.UpdatedAt = now
}

func (q *Question) record(kind ChangeKind, now time.Time, fields ...string) ChangeRecord {
	return ChangeRecord{
		Key:           q.s.Key,
		QuestionID:    q.s.ID,
		Kind:          kind,
		ChangedFields: fields,
		OccurredAt:    now,
	}
}

func normalizeBasicContent(title, content string, points float64) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	switch {
	case title == "":
		return "", "", ErrTitleRequired
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return "", "", ErrTitleTooLong
	case content == "":
		return "", "", ErrContentRequired
	case utf8.RuneCountInString(content) > MaxContentLength:
		return "", "", ErrContentTooLong
	case points < 0:
		return "", "", ErrNegativePoints
	}
	return title, content, nil
}
