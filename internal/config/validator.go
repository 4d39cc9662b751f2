package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/syncline-io/approvalsync/internal/domain"
)

var validate = validator.New()

// Validate checks required fields and value ranges. All violations are
// reported in one error so a misconfigured deployment is fixed in one pass.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	var problems []string
	for _, fe := range verrs {
		problems = append(problems, describeViolation(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrConfigInvalid, strings.Join(problems, "; "))
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
}
