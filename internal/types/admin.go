//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
)

// ApproveRunRequest is the body of an approval call.
type ApproveRunRequest struct {
	ModelName  string `json:"model_name" validate:"required,min=1,max=128"`
	Version    string `json:"version,omitempty" validate:"omitempty,max=64"`
	ApprovedBy string `json:"approved_by,omitempty" validate:"omitempty,max=128"`
}

// RejectRunRequest is the body of a rejection call.
type RejectRunRequest struct {
	Reason     string `json:"reason" validate:"required,min=1,max=1000"`
	RejectedBy string `json:"rejected_by,omitempty" validate:"omitempty,max=128"`
}

// ColdStartRequest is the body of a forced cold-start call.
type ColdStartRequest struct {
	Actor string `json:"actor,omitempty" validate:"omitempty,max=128"`
}

// Validate validates the ApproveRunRequest using the validator.
func (r *ApproveRunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RejectRunRequest using the validator.
func (r *RejectRunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ColdStartRequest using the validator.
func (r *ColdStartRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
