package leads

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// Validator is the schema check every repository runs before a save.
type Validator struct {
	v *validator.Validate
}

// NewValidator registers the tag rules on LeadRecord plus the cross-field
// rules that tags cannot express.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(leadRecordRules, LeadRecord{})
	return &Validator{v: v}
}

// Validate returns a *ValidationError describing every failed rule.
func (val *Validator) Validate(rec *LeadRecord) error {
	if rec == nil {
		return &ValidationError{Problems: []string{"record is nil"}}
	}
	err := val.v.Struct(rec)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Problems: []string{err.Error()}, Err: err}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return &ValidationError{Problems: problems, Err: err}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "dnc_score":
		return "an opted-out lead must score 0 in tier 5"
	case "disqualified_tier":
		return "a disqualified lead must be tier 5"
	case "email":
		return fmt.Sprintf("%s is not a valid email address", fe.Field())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s failed %s (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
}

func leadRecordRules(sl validator.StructLevel) {
	rec := sl.Current().Interface().(LeadRecord)

	if rec.Fields.DoNotContact && (rec.Score != 0 || rec.Tier != 5) {
		sl.ReportError(rec.Score, "Score", "score", "dnc_score", "")
	}
	if rec.Disqualified != qualify.DisqualifyNone && rec.Tier != 5 {
		sl.ReportError(rec.Tier, "Tier", "tier", "disqualified_tier", "")
	}
	if email, ok := rec.Fields.ContactEmail.Get(); ok {
		if err := sl.Validator().Var(email, "email"); err != nil {
			sl.ReportError(email, "ContactEmail", "contactEmail", "email", "")
		}
	}
}
