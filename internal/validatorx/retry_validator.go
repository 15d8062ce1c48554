package validatorx

import (
	"fmt"

	validator "github.com/go-playground/validator/v10"

	"github.com/danrygg/wovenflow/internal/model"
)

// structValidator drives struct-tag validation of model.RetryPolicy, plus a
// struct-level check for the one constraint a tag alone can't express: a
// field requirement that depends on another field's value. This mirrors the
// reference Serverless Workflow SDK's retryStructLevelValidation
// (model/retry_validator.go), which registers the same kind of check for its
// own Retry type against the same validator/v10 package.
var structValidator = newRetryValidator()

func newRetryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(retryPolicyLevel, model.RetryPolicy{})
	return v
}

func retryPolicyLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.RetryPolicy)
	if p.Backoff == model.BackoffExponential && p.Multiplier <= 0 {
		sl.ReportError(p.Multiplier, "Multiplier", "multiplier", "exponential_backoff_multiplier", "")
	}
}

// validateRetryPolicies runs struct-tag and struct-level validation over
// every named policy in use.retries.
func validateRetryPolicies(wf *model.Workflow) []string {
	if wf.Use == nil {
		return nil
	}
	var problems []string
	for name, policy := range wf.Use.Retries {
		if policy == nil {
			continue
		}
		err := structValidator.Struct(*policy)
		if err == nil {
			continue
		}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			problems = append(problems, fmt.Sprintf("use.retries.%s: %v", name, err))
			continue
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("use.retries.%s: %s", name, describeRetryFieldError(fe)))
		}
	}
	return problems
}

func describeRetryFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %q", fe.Field(), fe.Param())
	case "exponential_backoff_multiplier":
		return "multiplier must be greater than zero when backoff is exponential"
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
