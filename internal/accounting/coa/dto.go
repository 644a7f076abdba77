package coa

import (
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// CreateAccountInput groups fields required to create an account.
type CreateAccountInput struct {
	Number      string      `json:"number" validate:"required,max=20"`
	Name        string      `json:"name" validate:"required,max=200"`
	Type        AccountType `json:"type" validate:"required"`
	ParentID    *int64      `json:"parentId"`
	SortOrder   int         `json:"sortOrder"`
	Description string      `json:"description"`
	ActorID     int64       `json:"-"`
}

// Validate ensures the create input meets minimum criteria.
func (in CreateAccountInput) Validate() error {
	if in.Number == "" {
		return fmt.Errorf("%w: account number required", shared.ErrValidationFailed)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: account name required", shared.ErrValidationFailed)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidationFailed, in.Type)
	}
	return nil
}

// UpdateAccountInput carries a partial update. Nil fields are left untouched;
// ClearParent detaches the account from its parent.
type UpdateAccountInput struct {
	Number      *string      `json:"number" validate:"omitempty,max=20"`
	Name        *string      `json:"name" validate:"omitempty,max=200"`
	Type        *AccountType `json:"type"`
	ParentID    *int64       `json:"parentId"`
	ClearParent bool         `json:"clearParent"`
	SortOrder   *int         `json:"sortOrder"`
	Description *string      `json:"description"`
	IsActive    *bool        `json:"isActive"`
	ActorID     int64        `json:"-"`
}

// Validate rejects contradictory or malformed patches.
func (in UpdateAccountInput) Validate() error {
	if in.ParentID != nil && in.ClearParent {
		return fmt.Errorf("%w: cannot set and clear parent together", shared.ErrValidationFailed)
	}
	if in.Type != nil && !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidationFailed, *in.Type)
	}
	if in.Number != nil && *in.Number == "" {
		return fmt.Errorf("%w: account number cannot be blank", shared.ErrValidationFailed)
	}
	return nil
}
