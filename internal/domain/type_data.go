package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// TypeData is the payload specific to one question type. A question holds
// exactly one, and it must report the question's type.
type TypeData interface {
	QuestionType() QuestionType
	Validate() error
}

// MCQOption is one answer choice.
type MCQOption struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// MCQData holds the choices of a multiple choice question.
type MCQData struct {
	Options        []MCQOption `json:"options"`
	AllowMultiple  bool        `json:"allow_multiple"`
	ShuffleOptions bool        `json:"shuffle_options"`
}

func (*MCQData) QuestionType() QuestionType { return QuestionTypeMCQ }

// Validate checks option count, correctness marks and id uniqueness.
func (d *MCQData) Validate() error {
	if len(d.Options) == 0 {
		return ErrNoOptions
	}
	seen := make(map[string]struct{}, len(d.Options))
	correct := 0
	for _, o := range d.Options {
		id := strings.TrimSpace(o.ID)
		if id == "" || strings.TrimSpace(o.Text) == "" {
			return ErrBlankOption
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOptionID, id)
		}
		seen[id] = struct{}{}
		if o.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return ErrNoCorrectOption
	}
	if !d.AllowMultiple && correct > 1 {
		return ErrSingleAnswerMulti
	}
	return nil
}

// EssayData holds grading hints for a free-text answer.
type EssayData struct {
	MinWords     int    `json:"min_words"`
	MaxWords     int    `json:"max_words"`
	Rubric       string `json:"rubric,omitempty"`
	SampleAnswer string `json:"sample_answer,omitempty"`
}

func (*EssayData) QuestionType() QuestionType { return QuestionTypeEssay }

// Validate checks the word limits. MaxWords of 0 means unlimited.
func (d *EssayData) Validate() error {
	if d.MinWords < 0 || d.MaxWords < 0 {
		return ErrNegativeWordLimit
	}
	if d.MaxWords > 0 && d.MaxWords < d.MinWords {
		return ErrWordLimitsInverted
	}
	return nil
}

// TrueFalseData holds the expected boolean answer.
type TrueFalseData struct {
	CorrectAnswer bool   `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

func (*TrueFalseData) QuestionType() QuestionType { return QuestionTypeTrueFalse }

func (*TrueFalseData) Validate() error { return nil }

// DecodeTypeData rebuilds a stored payload for the given question type.
func DecodeTypeData(t QuestionType, raw []byte) (TypeData, error) {
	var data TypeData
	switch t {
	case QuestionTypeMCQ:
		data = &MCQData{}
	case QuestionTypeEssay:
		data = &EssayData{}
	case QuestionTypeTrueFalse:
		data = &TrueFalseData{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuestionType, t)
	}
	if len(raw) == 0 {
		return nil, ErrTypeDataRequired
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", t, err)
	}
	return data, nil
}

func typeDataEqual(a, b TypeData) bool {
	return reflect.DeepEqual(a, b)
}
