package service

import (
	"fmt"
	"time"

	"github.com/stemsi/qbank-core/internal/domain"
	"github.com/stemsi/qbank-core/internal/model"
)

// QuestionStrategy builds or mutates a question of one type from an upsert
// command.
type QuestionStrategy interface {
	Type() domain.QuestionType
	Create(cmd model.UpsertQuestionCommand, now time.Time) (*domain.Question, []domain.ChangeRecord, error)
	Update(q *domain.Question, cmd model.UpsertQuestionCommand, now time.Time) ([]domain.ChangeRecord, error)
}

type payloadStrategy struct {
	typ     domain.QuestionType
	payload func(cmd model.UpsertQuestionCommand) (domain.TypeData, bool)
}

// MCQStrategy handles multiple choice questions.
func MCQStrategy() QuestionStrategy {
	return payloadStrategy{typ: domain.QuestionTypeMCQ, payload: func(c model.UpsertQuestionCommand) (domain.TypeData, bool) {
		return c.MCQ, c.MCQ != nil
	}}
}

// EssayStrategy handles essay questions.
func EssayStrategy() QuestionStrategy {
	return payloadStrategy{typ: domain.QuestionTypeEssay, payload: func(c model.UpsertQuestionCommand) (domain.TypeData, bool) {
		return c.Essay, c.Essay != nil
	}}
}

// TrueFalseStrategy handles true/false questions.
func TrueFalseStrategy() QuestionStrategy {
	return payloadStrategy{typ: domain.QuestionTypeTrueFalse, payload: func(c model.UpsertQuestionCommand) (domain.TypeData, bool) {
		return c.TrueFalse, c.TrueFalse != nil
	}}
}

func (s payloadStrategy) Type() domain.QuestionType { return s.typ }

func (s payloadStrategy) data(cmd model.UpsertQuestionCommand) (domain.TypeData, error) {
	data, ok := s.payload(cmd)
	if !ok {
		return nil, fmt.Errorf("%s question: %w", s.typ, domain.ErrTypeDataRequired)
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidTypeData, err)
	}
	return data, nil
}

func (s payloadStrategy) Create(cmd model.UpsertQuestionCommand, now time.Time) (*domain.Question, []domain.ChangeRecord, error) {
	data, err := s.data(cmd)
	if err != nil {
		return nil, nil, err
	}
	q, rec, err := domain.NewQuestion(domain.NewQuestionParams{
		Key:      cmd.Key(),
		Title:    cmd.Title,
		Content:  cmd.Content,
		Points:   cmd.Points,
		TypeData: data,
	}, now)
	if err != nil {
		return nil, nil, err
	}
	return q, []domain.ChangeRecord{rec}, nil
}

func (s payloadStrategy) Update(q *domain.Question, cmd model.UpsertQuestionCommand, now time.Time) ([]domain.ChangeRecord, error) {
	data, err := s.data(cmd)
	if err != nil {
		return nil, err
	}
	content, err := q.UpdateBasicContent(cmd.Title, cmd.Content, cmd.Points, now)
	if err != nil {
		return nil, err
	}
	typed, err := q.ReplaceTypeData(data, now)
	if err != nil {
		return nil, err
	}

	var records []domain.ChangeRecord
	for _, r := range []domain.ChangeRecord{content, typed} {
		if !r.Empty() {
			records = append(records, r)
		}
	}
	return records, nil
}

// Strategies resolves the strategy for a question type.
type Strategies struct {
	byType map[domain.QuestionType]QuestionStrategy
}

// NewStrategies indexes strategies by type. A later strategy for the same
// type replaces an earlier one.
func NewStrategies(strategies ...QuestionStrategy) Strategies {
	m := make(map[domain.QuestionType]QuestionStrategy, len(strategies))
	for _, s := range strategies {
		m[s.Type()] = s
	}
	return Strategies{byType: m}
}

// DefaultStrategies covers every question type.
func DefaultStrategies() Strategies {
	return NewStrategies(MCQStrategy(), EssayStrategy(), TrueFalseStrategy())
}

// Resolve returns the strategy for t.
func (s Strategies) Resolve(t domain.QuestionType) (QuestionStrategy, bool) {
	st, ok := s.byType[t]
	return st, ok
}
