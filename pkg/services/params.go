package services

import (
	"errors"
	"strings"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/go-playground/validator/v10"
)

// VersionBehavior selects how Release picks the release version.
type VersionBehavior string

const (
	VersionDefault VersionBehavior = "default" // keep the draft's own version, fall back to the parameter
	VersionCheck   VersionBehavior = "check"   // fail when the draft and the parameter disagree
	VersionForce   VersionBehavior = "force"   // always use the parameter
)

// Experimental artifact handling for RequireNonExperimental.
const (
	ExperimentalWarn  = "warn"
	ExperimentalError = "error"
)

// DraftParams are the inputs of Draft.
type DraftParams struct {
	Version string `validate:"required"`
}

// ReleaseParams are the inputs of Release.
type ReleaseParams struct {
	Version                string
	VersionBehavior        VersionBehavior `validate:"required,oneof=default check force"`
	ReleaseLabel           string
	RequireNonExperimental string `validate:"omitempty,oneof=warn error"`
}

// ApproveParams are the inputs of Approve.
type ApproveParams struct {
	ApprovalDate    *time.Time
	InfoType        string `validate:"omitempty,oneof=comment classifier rating container response change-request"`
	Summary         string
	Author          string
	Target          string // optional url|version that must name the approved artifact
	RelatedArtifact string
}

// PackageParams are the inputs of Package.
type PackageParams struct {
	Capability          []string `validate:"dive,required"`
	CheckVersion        []string
	ForceVersion        []string
	DefaultVersion      []string
	Include             []string
	Exclude             []string
	Offset              int               `validate:"min=0"`
	Count               *int              `validate:"omitempty,min=0"`
	BundleType          models.BundleType `validate:"omitempty,oneof=collection transaction searchset"`
	Expand              bool
	TerminologyEndpoint string `validate:"omitempty,url"`
}

// Paged reports whether the request slices the result.
func (p PackageParams) Paged() bool {
	return p.Offset > 0 || p.Count != nil
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validateParams runs struct validation and reports failures as unprocessable input.
func validateParams(v *validator.Validate, op string, params any) error {
	err := v.Struct(params)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return unprocessable(op, CodeInvalidParameter, "%v", err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fieldErr.Field()+" failed on '"+fieldErr.Tag()+"'")
	}

	return unprocessable(op, CodeInvalidParameter, "invalid parameters: %s", strings.Join(messages, ", "))
}
