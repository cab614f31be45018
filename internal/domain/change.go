package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind names what happened to a question.
type ChangeKind string

const (
	ChangeCreated          ChangeKind = "created"
	ChangeContentUpdated   ChangeKind = "content_updated"
	ChangeTypeDataReplaced ChangeKind = "type_data_replaced"
	ChangePublished        ChangeKind = "published"
	ChangeArchived         ChangeKind = "archived"
)

// ChangeRecord is returned by every mutating aggregate call. The caller
// decides whether to drop, log or forward it; the aggregate keeps no buffer.
type ChangeRecord struct {
	Key           BusinessKey `json:"key"`
	QuestionID    uuid.UUID   `json:"question_id"`
	Kind          ChangeKind  `json:"kind"`
	ChangedFields []string    `json:"changed_fields"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// Empty reports whether the record carries no field change.
func (c ChangeRecord) Empty() bool {
	return len(c.ChangedFields) == 0
}

// WithQuestionID stamps the storage identifier once it is known.
func WithQuestionID(records []ChangeRecord, id uuid.UUID) []ChangeRecord {
	out := make([]ChangeRecord, len(records))
	for i, r := range records {
		r.QuestionID = id
		out[i] = r
	}
	return out
}
