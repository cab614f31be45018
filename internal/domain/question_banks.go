package domain

import (
	"fmt"
	"time"
)

// OwnedBank is one question bank in a user's registry.
type OwnedBank struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionBanksPerUser is the registry of banks one user owns. The default
// bank, when set, is always one of the owned banks.
type QuestionBanksPerUser struct {
	UserID        int64       `json:"user_id"`
	Banks         []OwnedBank `json:"banks"`
	DefaultBankID *int64      `json:"default_bank_id,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewQuestionBanksPerUser returns an empty registry for userID.
func NewQuestionBanksPerUser(userID int64, now time.Time) (*QuestionBanksPerUser, error) {
	if userID == 0 {
		return nil, ErrScopeRequired
	}
	return &QuestionBanksPerUser{UserID: userID, UpdatedAt: now}, nil
}

// Validate checks the default-bank invariant on a loaded registry.
func (r *QuestionBanksPerUser) Validate() error {
	if r.DefaultBankID != nil && r.find(*r.DefaultBankID) == nil {
		return fmt.Errorf("%w: default bank %d", ErrBankNotOwned, *r.DefaultBankID)
	}
	return nil
}

// AddBank registers a new active bank. The first bank becomes the default.
func (r *QuestionBanksPerUser) AddBank(id int64, name string, now time.Time) error {
	if id == 0 {
		return ErrScopeRequired
	}
	if r.find(id) != nil {
		return fmt.Errorf("%w: %d", ErrDuplicateBank, id)
	}
	r.Banks = append(r.Banks, OwnedBank{ID: id, Name: name, Active: true, CreatedAt: now})
	if r.DefaultBankID == nil {
		r.DefaultBankID = &id
	}
	r.UpdatedAt = now
	return nil
}

// SetDefault designates an owned bank as the default.
func (r *QuestionBanksPerUser) SetDefault(id int64, now time.Time) error {
	if r.find(id) == nil {
		return fmt.Errorf("%w: %d", ErrBankNotOwned, id)
	}
	r.DefaultBankID = &id
	r.UpdatedAt = now
	return nil
}

// Deactivate marks an owned bank inactive. A deactivated default bank stops
// being the default.
func (r *QuestionBanksPerUser) Deactivate(id int64, now time.Time) error {
	b := r.find(id)
	if b == nil {
		return fmt.Errorf("%w: %d", ErrBankNotOwned, id)
	}
	b.Active = false
	if r.DefaultBankID != nil && *r.DefaultBankID == id {
		r.DefaultBankID = nil
	}
	r.UpdatedAt = now
	return nil
}

// Owns reports whether the bank is registered to the user, active or not.
func (r *QuestionBanksPerUser) Owns(id int64) bool {
	return r.find(id) != nil
}

// IsActive reports whether the bank is owned and active. Ownership checks
// only pass for active banks.
func (r *QuestionBanksPerUser) IsActive(id int64) bool {
	b := r.find(id)
	return b != nil && b.Active
}

func (r *QuestionBanksPerUser) find(id int64) *OwnedBank {
	for i := range r.Banks {
		if r.Banks[i].ID == id {
			return &r.Banks[i]
		}
	}
	return nil
}
